package selector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
)

func TestOptions(t *testing.T) {
	opts := Options([]model.CandidateItem{
		{Preview: "Budget review Mar 10"},
		{Preview: "   "},
		{Preview: " Call Ann "},
	})

	require.Len(t, opts, 3)
	require.Equal(t, "Budget review Mar 10", opts[0].Key)
	require.Equal(t, 0, opts[0].Value)
	require.Equal(t, untitled, opts[1].Key)
	require.Equal(t, 1, opts[1].Value)
	require.Equal(t, "Call Ann", opts[2].Key)
	require.Equal(t, 2, opts[2].Value)
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		analysis *model.Analysis
		want     int
	}{
		{name: "nil analysis", analysis: nil, want: 0},
		{name: "empty analysis", analysis: &model.Analysis{}, want: 0},
		{
			name:     "summary only",
			analysis: &model.Analysis{Summary: "Nothing to do"},
			want:     1,
		},
		{
			name: "summary and two kinds",
			analysis: &model.Analysis{
				Summary:  "Planning",
				Events:   []model.CandidateItem{{Preview: "Kickoff"}},
				Contacts: []model.CandidateItem{{Preview: "Ann Lee"}},
			},
			want: 3,
		},
		{
			name: "all kinds without summary",
			analysis: &model.Analysis{
				Events:   []model.CandidateItem{{Preview: "Kickoff"}},
				Tasks:    []model.CandidateItem{{Preview: "Send slides"}},
				Contacts: []model.CandidateItem{{Preview: "Ann Lee"}},
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sel extract.Selection
			require.Len(t, Fields(tt.analysis, &sel), tt.want)
		})
	}
}

func TestSelect_NothingToAsk(t *testing.T) {
	sel, err := New(nil, nil).Select(context.Background(), &model.Analysis{})
	require.NoError(t, err)
	require.True(t, sel.IsEmpty())
}

func TestAll(t *testing.T) {
	sel, err := All(context.Background(), &model.Analysis{
		Events: []model.CandidateItem{{Preview: "a"}, {Preview: "b"}},
		Tasks:  []model.CandidateItem{{Preview: "c"}},
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, sel.Events)
	require.Equal(t, []int{0}, sel.Tasks)
	require.Nil(t, sel.Contacts)

	sel, err = All(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, sel.IsEmpty())
}

var _ extract.Selector = (*Form)(nil)
var _ extract.Selector = extract.SelectorFunc(All)
