package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertAppendsNewURL(t *testing.T) {
	list := PostingList{{URL: "a", TermFrequency: 0.5, DocumentLength: 10}}

	got, replaced := list.Upsert(Posting{URL: "b", TermFrequency: 0.25, DocumentLength: 20})

	assert.False(t, replaced)
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[1].URL)
	assert.Len(t, list, 1, "receiver must not change")
}

func TestUpsertReplacesInPlace(t *testing.T) {
	list := PostingList{
		{URL: "a", TermFrequency: 0.5, DocumentLength: 10},
		{URL: "b", TermFrequency: 0.1, DocumentLength: 30},
	}

	got, replaced := list.Upsert(Posting{URL: "a", TermFrequency: 0.9, DocumentLength: 12})

	assert.True(t, replaced)
	assert.Equal(t, PostingList{
		{URL: "a", TermFrequency: 0.9, DocumentLength: 12},
		{URL: "b", TermFrequency: 0.1, DocumentLength: 30},
	}, got)
	assert.Equal(t, 0.5, list[0].TermFrequency, "receiver must not change")
}

func TestUpsertOnEmptyList(t *testing.T) {
	var list PostingList
	got, replaced := list.Upsert(Posting{URL: "a"})
	assert.False(t, replaced)
	assert.Len(t, got, 1)
}

func TestFind(t *testing.T) {
	list := PostingList{{URL: "a", TermFrequency: 0.5}}

	p, ok := list.Find("a")
	assert.True(t, ok)
	assert.Equal(t, 0.5, p.TermFrequency)

	_, ok = list.Find("missing")
	assert.False(t, ok)
}
