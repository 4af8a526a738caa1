// Package cost estimates paid-API spend and gates pipeline start on
// explicit confirmation.
package cost

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Estimate is the projected spend for a run against a paid provider.
type Estimate struct {
	Provider string
	Items    int
	PerCall  float64
	Unit     string // "USD" or "credits"
}

// Total returns the projected total spend.
func (e Estimate) Total() float64 {
	return float64(e.Items) * e.PerCall
}

func (e Estimate) String() string {
	if e.Unit == "credits" {
		return fmt.Sprintf("%s: %d lookups, ~%.0f credits", e.Provider, e.Items, e.Total())
	}
	return fmt.Sprintf("%s: %d tasks at $%.4f = $%.2f", e.Provider, e.Items, e.PerCall, e.Total())
}

// Confirmer answers a single yes/no question before any paid calls are
// dispatched.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Gate is the pre-flight check for paid providers: it presents the estimate
// and requires affirmative confirmation before the worker pool starts. When
// declined, the pipeline terminates with no calls made.
func Gate(est Estimate, confirmer Confirmer) (bool, error) {
	zap.L().Info("cost estimate",
		zap.String("provider", est.Provider),
		zap.Int("items", est.Items),
		zap.Float64("per_call", est.PerCall),
		zap.Float64("total", est.Total()),
		zap.String("unit", est.Unit),
	)

	ok, err := confirmer.Confirm(fmt.Sprintf("%s. Continue? (yes/no): ", est.String()))
	if err != nil {
		return false, err
	}
	if !ok {
		zap.L().Info("run declined at cost gate", zap.String("provider", est.Provider))
	}
	return ok, nil
}

// TerminalConfirmer prompts on out and reads the answer from in. Only
// "yes" and "y" (case-insensitive) count as affirmative.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm writes the prompt and reads one line.
func (c *TerminalConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprint(c.Out, prompt)
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y", nil
}

// AutoApprove answers yes without prompting, for --yes runs and tests.
type AutoApprove struct{}

// Confirm always returns true.
func (AutoApprove) Confirm(string) (bool, error) {
	return true, nil
}
