package cli

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBar creates the progress bar shown while importing statement files.
func NewProgressBar(writer io.Writer, total int, description string) *progressbar.ProgressBar {
	if writer == nil {
		writer = os.Stderr
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
