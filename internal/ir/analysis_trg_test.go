package ir_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llhd/internal/ir"
)

// buildMergingProcess builds a process whose two wait_time resumption
// points (head_a, head_b) both fall straight through into a shared
// "merge" block before a further "tail" block and a final halt:
//
//	entry -[br_cond]-> pre_a, pre_b
//	pre_a -[wait_time 1ns]-> head_a
//	pre_b -[wait_time 2ns]-> head_b
//	head_a -[br]-> merge
//	head_b -[br]-> merge
//	merge -[br]-> tail
//	tail -[halt]
//
// head_a and head_b are both temporal-region heads (wait_time targets),
// so whichever one's BFS reaches merge second must promote merge (and
// its downstream closure, tail) out of the first head's region.
func buildMergingProcess() (*ir.UnitData, map[string]ir.Block) {
	sig := ir.NewSignature([]*ir.Type{ir.IntTy(1)}, nil, nil)
	u := ir.NewUnitData(ir.ProcessKind, "merge_regions", sig)
	b := ir.NewBuilder(u)

	cond := u.DFG().BindArg(0, ir.IntTy(1))

	blocks := map[string]ir.Block{
		"entry": b.CreateBlock("entry"),
		"pre_a": b.CreateBlock("pre_a"),
		"pre_b": b.CreateBlock("pre_b"),
		"head_a": b.CreateBlock("head_a"),
		"head_b": b.CreateBlock("head_b"),
		"merge": b.CreateBlock("merge"),
		"tail": b.CreateBlock("tail"),
	}

	b.SetInsertPoint(ir.AppendTo(blocks["entry"]))
	b.BuildBrCond(cond, blocks["pre_a"], blocks["pre_b"])

	b.SetInsertPoint(ir.AppendTo(blocks["pre_a"]))
	delay1 := b.BuildConstTime(ir.NewTimeValue(big.NewRat(1, 1000000000), 0, 0))
	b.BuildWaitTime(blocks["head_a"], delay1, nil)

	b.SetInsertPoint(ir.AppendTo(blocks["pre_b"]))
	delay2 := b.BuildConstTime(ir.NewTimeValue(big.NewRat(2, 1000000000), 0, 0))
	b.BuildWaitTime(blocks["head_b"], delay2, nil)

	b.SetInsertPoint(ir.AppendTo(blocks["head_a"]))
	b.BuildBr(blocks["merge"])

	b.SetInsertPoint(ir.AppendTo(blocks["head_b"]))
	b.BuildBr(blocks["merge"])

	b.SetInsertPoint(ir.AppendTo(blocks["merge"]))
	b.BuildBr(blocks["tail"])

	b.SetInsertPoint(ir.AppendTo(blocks["tail"]))
	b.BuildHalt()

	return u, blocks
}

func TestTemporalRegionGraphReclaimsPromotedDownstream(t *testing.T) {
	u, blocks := buildMergingProcess()
	preds := ir.ComputePredecessors(u)
	trg := ir.ComputeTemporalRegionGraph(u, preds)

	headA, ok := trg.RegionOf(blocks["head_a"])
	require.True(t, ok)
	headB, ok := trg.RegionOf(blocks["head_b"])
	require.True(t, ok)
	merge, ok := trg.RegionOf(blocks["merge"])
	require.True(t, ok)
	tail, ok := trg.RegionOf(blocks["tail"])
	require.True(t, ok)
	entry, ok := trg.RegionOf(blocks["entry"])
	require.True(t, ok)

	assert.NotEqual(t, headA.ID, headB.ID, "each wait_time head starts its own region")
	assert.Equal(t, merge.ID, tail.ID, "merge's whole downstream closure must move with it when promoted")
	assert.NotEqual(t, merge.ID, headA.ID, "the promoted merge region must not stay attached to either original head")
	assert.NotEqual(t, merge.ID, headB.ID, "the promoted merge region must not stay attached to either original head")
	assert.NotEqual(t, merge.ID, entry.ID)

	assert.ElementsMatch(t, []ir.Block{blocks["head_a"]}, headA.Blocks)
	assert.ElementsMatch(t, []ir.Block{blocks["head_b"]}, headB.Blocks)
	assert.ElementsMatch(t, []ir.Block{blocks["merge"], blocks["tail"]}, merge.Blocks)
}
