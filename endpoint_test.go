package veneer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointVerbs(t *testing.T) {
	assert.Equal(t, "GET", Get("/x").verb)
	assert.Equal(t, "POST", Post("/x").verb)
	assert.Equal(t, "PUT", Put("/x").verb)
	assert.Equal(t, "PATCH", Patch("/x").verb)
	assert.Equal(t, "DELETE", Delete("/x").verb)
	assert.Equal(t, "OPTIONS", NewEndpoint("options", "/x").verb)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"user", "post"}, placeholders("/users/:user/posts/:post"))
	assert.Nil(t, placeholders("/users"))
	assert.Nil(t, placeholders(""))
}

func TestValidateRejectsMultipleBodyBindings(t *testing.T) {
	err := Post("/x").Body().Body().validate()
	require.Error(t, err)
	assert.Equal(t, CodeConfiguration, CodeOf(err))
	assert.Contains(t, err.Error(), "body")
}

func TestValidateRejectsUnknownPathBinding(t *testing.T) {
	err := Get("/users/:id").Path("name").validate()
	require.Error(t, err)
	assert.Equal(t, CodeConfiguration, CodeOf(err))
}

func TestValidateRejectsDuplicatePathBinding(t *testing.T) {
	err := Get("/users/:id").Path("id").Path("id").validate()
	require.Error(t, err)
	assert.Equal(t, CodeConfiguration, CodeOf(err))
}

func TestValidateRejectsFieldWithoutForm(t *testing.T) {
	err := Post("/x").Field("email").validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FormURLEncoded")
}

func TestValidateAcceptsFullDeclaration(t *testing.T) {
	ep := Post("/users/:id/avatar").
		Path("id").
		Query("overwrite").
		Header("X-Trace").
		Body().
		UploadProgress().
		WithLogging().
		WithRetry(RetryPolicy{Attempts: 2}).
		CancelPrevious()
	require.NoError(t, ep.validate())
}

func TestRegisterRejectsInvalidEndpoint(t *testing.T) {
	c := NewClient(&fakeTransport{})
	err := c.Register("Bad", Post("/x").Body().Body())
	require.Error(t, err)
	assert.Equal(t, CodeConfiguration, CodeOf(err))

	err = c.Register("Nil", nil)
	require.Error(t, err)
}

func TestMustRegisterPanicsOnInvalidEndpoint(t *testing.T) {
	c := NewClient(&fakeTransport{})
	assert.Panics(t, func() {
		c.MustRegister("Bad", Post("/x").Body().Body())
	})
}

func TestDuplicateRegistrationReplaces(t *testing.T) {
	c := NewClient(&fakeTransport{})
	require.NoError(t, c.Register("Get", Get("/old")))
	require.NoError(t, c.Register("Get", Get("/new")))
	assert.Equal(t, map[string]string{"Get": "GET /new"}, c.Routes())
}
