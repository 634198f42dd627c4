package veneer

import (
	"io"
	"math"
)

// ProgressFunc receives transfer progress as an integer percentage.
// The percentage is round(loaded/total*100) while the total is known and
// positive, and 0 otherwise.
type ProgressFunc func(percent int)

func progressPercent(loaded, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(loaded) / float64(total) * 100))
}

// progressReader counts bytes flowing through an io.Reader and reports the
// resulting percentage. Used for both upload bodies and download bodies.
type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	fn     ProgressFunc
	last   int
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, fn: fn, last: -1}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if pct := progressPercent(p.loaded, p.total); pct != p.last {
			p.last = pct
			p.fn(pct)
		}
	}
	return n, err
}

func (p *progressReader) Close() error {
	if c, ok := p.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
