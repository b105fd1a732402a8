package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"llhd/internal/diag"
	"llhd/internal/ir"
)

func TestReportHasErrorsOnlyCountsErrorLevel(t *testing.T) {
	r := &diag.Report{}
	assert.False(t, r.HasErrors())

	r.Add(diag.Finding{Level: diag.Warning, Message: "heads up"})
	assert.False(t, r.HasErrors())

	r.Add(diag.Finding{Level: diag.Error, Message: "broken"})
	assert.True(t, r.HasErrors())
}

func TestRenderIncludesCodeAndMessage(t *testing.T) {
	r := &diag.Report{}
	r.Add(diag.Finding{Level: diag.Error, Code: "E-VFY", Unit: "u0", Message: "block missing terminator"})

	out := r.Render()
	assert.Contains(t, out, "E-VFY")
	assert.Contains(t, out, "block missing terminator")
	assert.Contains(t, out, "u0")
}

func TestFromVerifierErrorsTagsEVFY(t *testing.T) {
	errs := []error{
		&ir.VerifierError{Unit: 0, Inst: 2, Msg: "operand type mismatch"},
	}
	r := diag.FromVerifierErrors(errs)
	a := assert.New(t)
	a.Len(r.Findings, 1)
	a.Equal("E-VFY", r.Findings[0].Code)
	a.Equal(diag.Error, r.Findings[0].Level)
	a.Contains(r.Findings[0].Object, "2")
}

func TestFromLinkErrorsTagsELINK(t *testing.T) {
	errs := []error{
		&ir.LinkError{Name: "missing_fn", Msg: "no definition for external unit"},
	}
	r := diag.FromLinkErrors(errs)
	assert.Len(t, r.Findings, 1)
	assert.Equal(t, "E-LINK", r.Findings[0].Code)
	assert.Equal(t, "missing_fn", r.Findings[0].Object)
}
