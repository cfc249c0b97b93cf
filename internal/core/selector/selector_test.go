package selector

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/nuvalign/internal/core/model"
)

const sentinel = 10000

func cvx(n string) model.CodeID {
	return model.CodeID{System: "CVX", Notation: n}
}

type offerArgs struct {
	code model.CodeID
	may  []string
}

func TestOffer_SmallerCardinalityWins(t *testing.T) {
	tbl := New([]string{"A", "B"}, sentinel)
	require.NoError(t, tbl.Offer(cvx("Y"), "y", []string{"A", "B"}))
	require.NoError(t, tbl.Offer(cvx("X"), "x", []string{"A"}))

	res := tbl.Finalize()

	assert.Equal(t, model.CandidateEntry{Cardinality: 1, Codes: []model.CodeID{cvx("X")}}, res.Entry("A"))
	assert.Equal(t, model.CandidateEntry{Cardinality: 2, Codes: []model.CodeID{cvx("Y")}}, res.Entry("B"))

	require.Len(t, res.Reverse, 2)
	x, y := res.Reverse[0], res.Reverse[1]
	assert.Equal(t, cvx("X"), x.Code)
	assert.Equal(t, 1, x.Cardinality)
	assert.Equal(t, 1, x.Blur)
	assert.Equal(t, []string{"A"}, x.Best)
	assert.Equal(t, cvx("Y"), y.Code)
	assert.Equal(t, []string{"A", "B"}, y.May)
	assert.Equal(t, 2, y.Cardinality)
	assert.Equal(t, 1, y.Blur)
	assert.Equal(t, []string{"B"}, y.Best)
}

func TestOffer_TiesAccumulate(t *testing.T) {
	tbl := New([]string{"A"}, sentinel)
	require.NoError(t, tbl.Offer(cvx("2"), "", []string{"A"}))
	require.NoError(t, tbl.Offer(cvx("1"), "", []string{"A"}))

	res := tbl.Finalize()

	assert.Equal(t, []model.CodeID{cvx("1"), cvx("2")}, res.Entry("A").Codes)
	for _, rev := range res.Reverse {
		assert.Equal(t, []string{"A"}, rev.Best)
		assert.Equal(t, 1, rev.Blur)
	}
}

func TestOffer_Unmapped(t *testing.T) {
	tbl := New([]string{"A", "B"}, sentinel)
	require.NoError(t, tbl.Offer(cvx("X"), "", []string{"A"}))
	require.NoError(t, tbl.Offer(cvx("E"), "", nil))

	res := tbl.Finalize()

	assert.True(t, res.IsMapped("A"))
	assert.False(t, res.IsMapped("B"))
	assert.Equal(t, sentinel, res.Entry("B").Cardinality)
	assert.Empty(t, res.Entry("B").Codes)
	assert.Equal(t, sentinel, res.Entry("untracked").Cardinality)
	assert.Len(t, res.Reverse, 1, "codes with an empty may-set are dropped")
}

func TestOffer_MaySetReachingSentinel(t *testing.T) {
	tbl := New([]string{"A", "B", "C"}, 2)
	require.NoError(t, tbl.Offer(cvx("Y"), "", []string{"A", "B"}))
	require.NoError(t, tbl.Offer(cvx("Z"), "", []string{"A", "B", "C"}))

	res := tbl.Finalize()

	for _, c := range []string{"A", "B", "C"} {
		assert.True(t, res.IsMapped(c), c)
	}
	assert.Equal(t, model.CandidateEntry{Cardinality: 2, Codes: []model.CodeID{cvx("Y")}}, res.Entry("A"))
	assert.Equal(t, model.CandidateEntry{Cardinality: 3, Codes: []model.CodeID{cvx("Z")}}, res.Entry("C"))

	require.Len(t, res.Reverse, 2)
	assert.Equal(t, 2, res.Reverse[0].Blur)
	assert.Equal(t, []string{"C"}, res.Reverse[1].Best)
	assert.Equal(t, 1, res.Reverse[1].Blur)
}

func TestMerge_MaySetReachingSentinel(t *testing.T) {
	left := New([]string{"A", "B", "C"}, 2)
	right := New([]string{"A", "B", "C"}, 2)
	require.NoError(t, left.Offer(cvx("Z"), "", []string{"A", "B", "C"}))
	require.NoError(t, right.Offer(cvx("Y"), "", []string{"A", "B"}))

	merged := New([]string{"A", "B", "C"}, 2)
	require.NoError(t, merged.Merge(left))
	require.NoError(t, merged.Merge(right))

	res := merged.Finalize()
	assert.True(t, res.IsMapped("C"))
	assert.Equal(t, []model.CodeID{cvx("Z")}, res.Entry("C").Codes)
	assert.Equal(t, []model.CodeID{cvx("Y")}, res.Entry("A").Codes)
	assert.Equal(t, 2, res.Entry("A").Cardinality)
}

func TestOffer_UntrackedConceptKeptInMay(t *testing.T) {
	tbl := New([]string{"A"}, sentinel)
	require.NoError(t, tbl.Offer(cvx("X"), "", []string{"A", "Z", "A"}))

	res := tbl.Finalize()

	require.Len(t, res.Reverse, 1)
	assert.Equal(t, []string{"A", "Z"}, res.Reverse[0].May)
	assert.Equal(t, 2, res.Reverse[0].Cardinality)
	assert.Equal(t, []string{"A"}, res.Reverse[0].Best)
}

func TestOffer_Duplicate(t *testing.T) {
	tbl := New([]string{"A"}, sentinel)
	require.NoError(t, tbl.Offer(cvx("X"), "", []string{"A"}))
	err := tbl.Offer(cvx("X"), "", []string{"A"})
	assert.True(t, errors.Is(err, ErrDuplicateCode))
}

func fixture() ([]string, []offerArgs) {
	concepts := []string{"A", "B", "C", "D", "E"}
	offers := []offerArgs{
		{cvx("01"), []string{"A", "B", "C"}},
		{cvx("02"), []string{"A"}},
		{cvx("03"), []string{"B", "C"}},
		{cvx("04"), []string{"C", "B"}},
		{cvx("05"), []string{"D", "A", "B"}},
		{cvx("06"), []string{"A"}},
		{cvx("07"), []string{"D", "C", "B", "A"}},
	}
	return concepts, offers
}

func run(t *testing.T, concepts []string, offers []offerArgs) Result {
	tbl := New(concepts, sentinel)
	for _, o := range offers {
		require.NoError(t, tbl.Offer(o.code, o.code.Notation, o.may))
	}
	return tbl.Finalize()
}

func TestFinalize_OrderIndependent(t *testing.T) {
	concepts, offers := fixture()
	want := run(t, concepts, offers)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]offerArgs(nil), offers...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, run(t, concepts, shuffled))
	}

	assert.Equal(t, []model.CodeID{cvx("02"), cvx("06")}, want.Entry("A").Codes)
	assert.Equal(t, []model.CodeID{cvx("03"), cvx("04")}, want.Entry("B").Codes)
	assert.Equal(t, 3, want.Entry("D").Cardinality)
	assert.False(t, want.IsMapped("E"))
}

func TestFinalize_BlurSumsBestCodes(t *testing.T) {
	concepts, offers := fixture()
	res := run(t, concepts, offers)

	pairs := 0
	for _, c := range concepts {
		if res.IsMapped(c) {
			pairs += len(res.Entry(c).Codes)
		}
	}
	blur := 0
	for _, rev := range res.Reverse {
		blur += rev.Blur
		assert.Len(t, rev.May, rev.Cardinality)
	}
	assert.Equal(t, pairs, blur)
}

func TestMerge_MatchesSequential(t *testing.T) {
	concepts, offers := fixture()
	want := run(t, concepts, offers)

	left := New(concepts, sentinel)
	right := New(concepts, sentinel)
	for i, o := range offers {
		target := left
		if i%2 == 1 {
			target = right
		}
		require.NoError(t, target.Offer(o.code, o.code.Notation, o.may))
	}

	lr := New(concepts, sentinel)
	require.NoError(t, lr.Merge(left))
	require.NoError(t, lr.Merge(right))

	rl := New(concepts, sentinel)
	require.NoError(t, rl.Merge(right))
	require.NoError(t, rl.Merge(left))

	assert.Equal(t, want, lr.Finalize())
	assert.Equal(t, want, rl.Finalize())
}

func TestMerge_Errors(t *testing.T) {
	a := New([]string{"A"}, sentinel)
	b := New([]string{"A"}, 5)
	assert.True(t, errors.Is(a.Merge(b), ErrSentinelMismatch))

	c := New([]string{"A"}, sentinel)
	require.NoError(t, a.Offer(cvx("X"), "", []string{"A"}))
	require.NoError(t, c.Offer(cvx("X"), "", []string{"A"}))
	assert.True(t, errors.Is(a.Merge(c), ErrDuplicateCode))
}
