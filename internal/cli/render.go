package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/labstack/gommon/color"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// Renderer prints command results. Colour is used only when the output is
// a terminal and not disabled.
type Renderer struct {
	w io.Writer
	c *color.Color
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer, colorEnabled bool) *Renderer {
	c := color.New()
	c.SetOutput(w)
	if !colorEnabled {
		c.Disable()
	}
	return &Renderer{w: w, c: c}
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}

func (r *Renderer) paint(rc diagnosis.RiskColor, s string) string {
	switch rc {
	case diagnosis.ColorGreen:
		return r.c.Green(s)
	case diagnosis.ColorAmber:
		return r.c.Yellow(s)
	case diagnosis.ColorOrange:
		return r.c.Bold(r.c.Yellow(s))
	case diagnosis.ColorRed:
		return r.c.Red(s)
	default:
		return r.c.Grey(s)
	}
}

func (r *Renderer) label(s string) string {
	return r.c.Cyan(s)
}

// Result prints a diagnosis. With raw set the full analysis output follows.
func (r *Renderer) Result(res diagnosis.Result, raw bool) {
	rc := res.Color()
	r.printf("%s %s\n", r.label("Risk score:   "), r.paint(rc, res.RiskScore))
	r.printf("%s %s\n", r.label("Risk category:"), r.paint(rc, res.RiskCategory))
	r.printf("%s %s\n", r.label("Tilt angle:   "), res.TiltAngle)
	r.printf("%s %s\n", r.label("Species:      "), res.Species)
	r.printf("\n%s\n%s\n", r.label("Diagnosis:"), indent(res.Diagnosis))
	r.printf("\n%s\n%s\n", r.label("Fixes / recommendations:"), indent(res.Fixes))

	if raw && res.Raw != "" {
		r.printf("\n%s\n%s\n", r.c.Bold("Full output"), res.Raw)
	}
}

// Images prints an image listing.
func (r *Renderer) Images(list *vitalarbor.ImageList) {
	if list.Empty || list.Count == 0 {
		r.printf("No images yet. Upload one with 'vitalarbor images upload'.\n")
		return
	}
	r.printf("%d image(s)\n", list.Count)
	for _, img := range list.Images {
		status := r.c.Grey("pending")
		if img.Processed {
			status = r.c.Green("processed")
		}
		r.printf("  %s  %s  %s\n", img.Filename, status, img.URL)
	}
}

// Uploads prints one line per upload outcome and reports how many failed.
func (r *Renderer) Uploads(outcomes []vitalarbor.UploadOutcome) int {
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			r.printf("%s %s: %s\n", r.c.Red("✗"), o.Path, Describe(o.Err))
			continue
		}
		r.printf("%s %s -> %s\n", r.c.Green("✓"), o.Path, o.Result.ImageURL)
	}
	return failed
}

// Describe turns an error into the message shown to the user.
func Describe(err error) string {
	switch errors.CategoryOf(err) {
	case errors.CategoryConflict:
		return "That username is already taken. Choose another one."
	case errors.CategoryCancellation:
		return "Cancelled."
	case errors.CategoryTimeout:
		return "Timed out: " + err.Error()
	case errors.CategoryNetwork:
		return "Could not reach the VitalArbor backend: " + err.Error()
	case errors.CategoryCommandExecution:
		msg := "Analysis failed: " + err.Error()
		if out := lastLines(errors.ContextString(err, "output"), 5); out != "" {
			msg += "\n" + indent(out)
		}
		return msg
	default:
		return err.Error()
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
