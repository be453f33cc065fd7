package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFragment(t *testing.T) {
	tests := []struct {
		name       string
		fragment   string
		wantMerged bool
		validate   func(t *testing.T, r *Record)
	}{
		{
			name:       "single field fragment",
			fragment:   `{"name":"Jo"}`,
			wantMerged: true,
			validate: func(t *testing.T, r *Record) {
				assert.Equal(t, "Jo", r.Name)
			},
		},
		{
			name:       "multiple fields in one fragment",
			fragment:   `{"email":"a@b.com","problem":"site down"}`,
			wantMerged: true,
			validate: func(t *testing.T, r *Record) {
				assert.Equal(t, "a@b.com", r.Email)
				assert.Equal(t, "site down", r.Problem)
			},
		},
		{
			name:       "tcp key maps to domain",
			fragment:   `{"tcp":"foo.com"}`,
			wantMerged: true,
			validate: func(t *testing.T, r *Record) {
				assert.Equal(t, "foo.com", r.Domain)
			},
		},
		{
			name:       "domain alias also accepted",
			fragment:   `{"domain":"bar.org"}`,
			wantMerged: true,
			validate: func(t *testing.T, r *Record) {
				assert.Equal(t, "bar.org", r.Domain)
			},
		},
		{
			name:       "surrounding whitespace tolerated",
			fragment:   "  {\"name\":\"Ana\"}\n",
			wantMerged: true,
			validate: func(t *testing.T, r *Record) {
				assert.Equal(t, "Ana", r.Name)
			},
		},
		{
			name:       "plain speech discarded",
			fragment:   "Sure, could you spell your email for me?",
			wantMerged: false,
		},
		{
			name:       "incomplete JSON discarded",
			fragment:   `{"name":"Jo"`,
			wantMerged: false,
		},
		{
			name:       "malformed JSON object discarded",
			fragment:   `{name: Jo}`,
			wantMerged: false,
		},
		{
			name:       "unrecognized keys ignored",
			fragment:   `{"mood":"great"}`,
			wantMerged: false,
		},
		{
			name:       "empty values do not count as merged",
			fragment:   `{"name":""}`,
			wantMerged: false,
			validate: func(t *testing.T, r *Record) {
				assert.Empty(t, r.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			merged := r.MergeFragment(tt.fragment)
			assert.Equal(t, tt.wantMerged, merged)
			if tt.validate != nil {
				tt.validate(t, &r)
			}
		})
	}
}

func TestMergeFragment_LastWriteWinsPerKey(t *testing.T) {
	var r Record
	assert.True(t, r.MergeFragment(`{"name":"Jo"}`))
	assert.True(t, r.MergeFragment(`{"name":"Joanna"}`))
	assert.Equal(t, "Joanna", r.Name)

	// An empty value never clears a field that was already set
	assert.False(t, r.MergeFragment(`{"name":""}`))
	assert.Equal(t, "Joanna", r.Name)
}

func TestComplete_RequiresAllFiveFields(t *testing.T) {
	var r Record
	fragments := []string{
		`{"name":"Jo"}`,
		`{"email":"a@b.com","problem":"x"}`,
		`{"time":"3pm","tcp":"foo.com"}`,
	}

	for i, fragment := range fragments {
		assert.False(t, r.Complete(), "record complete before fragment %d", i)
		r.MergeFragment(fragment)
	}
	assert.True(t, r.Complete())
}

func TestComplete_OrderIndependent(t *testing.T) {
	var r Record
	r.MergeFragment(`{"tcp":"foo.com"}`)
	r.MergeFragment(`{"time":"3pm"}`)
	r.MergeFragment(`{"problem":"x"}`)
	r.MergeFragment(`{"email":"a@b.com"}`)
	assert.False(t, r.Complete())
	r.MergeFragment(`{"name":"Jo"}`)
	assert.True(t, r.Complete())
}

func TestEmpty(t *testing.T) {
	var r Record
	assert.True(t, r.Empty())
	r.MergeFragment(`{"problem":"x"}`)
	assert.False(t, r.Empty())
}

func TestSummary_IncludesAllValues(t *testing.T) {
	r := Record{Name: "Jo", Email: "a@b.com", Problem: "x", Time: "3pm", Domain: "foo.com"}
	summary := r.Summary()
	for _, want := range []string{"Jo", "a@b.com", "x", "3pm", "foo.com"} {
		assert.Contains(t, summary, want)
	}
}

func TestSummary_RendersUnsetFieldsAsDash(t *testing.T) {
	r := Record{Name: "Jo"}
	assert.Contains(t, r.Summary(), "Email: -")
}
