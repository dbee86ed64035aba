package weights

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// downloadProgress renders a byte progress bar. A nil *downloadProgress
// passes readers through untouched.
type downloadProgress struct {
	container *mpb.Progress
	bar       *mpb.Bar
}

func newDownloadProgress(w io.Writer, name string, total int64) *downloadProgress {
	if w == nil {
		return nil
	}
	if total < 0 {
		total = 0
	}

	// mpb stays silent on non-terminal writers unless auto refresh is forced.
	container := mpb.New(
		mpb.WithOutput(w),
		mpb.WithAutoRefresh(),
		mpb.WithRefreshRate(120*time.Millisecond),
	)

	bar := container.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name+" ", decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(
			decor.NewPercentage("%.1f", decor.WCSyncSpace),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncWidth), " ✓ ",
			),
		),
	)

	return &downloadProgress{container: container, bar: bar}
}

func (p *downloadProgress) wrap(r io.Reader) io.Reader {
	if p == nil {
		return r
	}
	return p.bar.ProxyReader(r)
}

// finish completes or aborts the bar and waits for the final render.
func (p *downloadProgress) finish(ok bool) {
	if p == nil {
		return
	}
	if ok {
		p.bar.SetTotal(-1, true)
	} else {
		p.bar.Abort(false)
	}
	p.container.Wait()
}
