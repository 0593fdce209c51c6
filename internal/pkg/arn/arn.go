// Package arn expands the short function names steps carry in a Sequence
// into the fully-qualified ARN form a real invocation transport expects.
package arn

import (
	"fmt"
	"strings"

	"orchestrate/runtime/internal/infrastructure/config"
)

// Expander resolves short function names to fully-qualified ARNs using the
// region/account/stage triple from the layered orchestrate config.
type Expander struct {
	Region    string
	AccountID string
	Stage     string
}

// NewExpander builds an Expander from the process's orchestrate config.
func NewExpander(cfg *config.OrchestrateConfig) *Expander {
	return &Expander{Region: cfg.Region, AccountID: cfg.AccountID, Stage: cfg.Stage}
}

// Expand returns name unchanged if it already looks like an ARN
// (`arn:aws:lambda:...`); otherwise it qualifies it as
// `arn:aws:lambda:<region>:<account>:function:<name>-<stage>`.
// Panics if region/account/stage are not configured — spec §6 "Missing
// variables ⇒ fatal error at invoke time."
func (e *Expander) Expand(name string) string {
	if strings.HasPrefix(name, "arn:") {
		return name
	}
	if e.Region == "" || e.AccountID == "" || e.Stage == "" {
		panic(fmt.Errorf("arn: cannot expand %q: region/account/stage must all be set (region=%q account=%q stage=%q)", name, e.Region, e.AccountID, e.Stage))
	}
	return fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s-%s", e.Region, e.AccountID, name, e.Stage)
}
