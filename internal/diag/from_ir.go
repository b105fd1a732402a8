package diag

import (
	"fmt"

	"llhd/internal/ir"
)

// FromVerifierErrors builds a Report from Verify's error slice, tagging
// each with the "structural/type/dominance" error-class code families
// §7 names (E-VFY as the umbrella code, since the verifier doesn't
// currently distinguish its own sub-codes beyond the message text).
func FromVerifierErrors(errs []error) *Report {
	r := &Report{}
	for _, err := range errs {
		ve, ok := err.(*ir.VerifierError)
		if !ok {
			r.Add(Finding{Level: Error, Message: err.Error()})
			continue
		}
		obj := ""
		if ve.Inst >= 0 {
			obj = fmt.Sprintf("inst %s", ve.Inst)
		}
		r.Add(Finding{
			Level:   Error,
			Code:    "E-VFY",
			Unit:    ve.Unit.String(),
			Object:  obj,
			Message: ve.Msg,
		})
	}
	return r
}

// FromLinkErrors builds a Report from Link's error slice.
func FromLinkErrors(errs []error) *Report {
	r := &Report{}
	for _, err := range errs {
		le, ok := err.(*ir.LinkError)
		if !ok {
			r.Add(Finding{Level: Error, Message: err.Error()})
			continue
		}
		r.Add(Finding{
			Level:   Error,
			Code:    "E-LINK",
			Object:  le.Name,
			Message: le.Msg,
		})
	}
	return r
}
