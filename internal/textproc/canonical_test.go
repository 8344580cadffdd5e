package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL_TrackingParamsAndFragment(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			"utm params stripped",
			"https://x.com/a?utm_source=x",
			"https://x.com/a",
		},
		{
			"fragment stripped",
			"https://x.com/a#section-2",
			"https://x.com/a",
		},
		{
			"gclid and fbclid stripped",
			"https://x.com/a?gclid=123&fbclid=456",
			"https://x.com/a",
		},
		{
			"mixed tracking and real params",
			"https://x.com/a?page=2&utm_campaign=spring",
			"https://x.com/a?page=2",
		},
		{
			"host case folded",
			"https://X.COM/a",
			"https://x.com/a",
		},
		{
			"default https port dropped",
			"https://x.com:443/a",
			"https://x.com/a",
		},
		{
			"query order normalized",
			"https://x.com/a?b=2&a=1",
			"https://x.com/a?a=1&b=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca, err := CanonicalURL(tt.a)
			require.NoError(t, err)
			cb, err := CanonicalURL(tt.b)
			require.NoError(t, err)
			assert.Equal(t, cb, ca, "both forms must map to one canonical URL")
		})
	}
}

func TestCanonicalURL_PreservesContentParams(t *testing.T) {
	got, err := CanonicalURL("https://shop.example.com/items?id=42&sort=price")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/items?id=42&sort=price", got)
}

func TestCanonicalURL_RootSlashEquivalence(t *testing.T) {
	a, err := CanonicalURL("https://x.com/")
	require.NoError(t, err)
	b, err := CanonicalURL("https://x.com")
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestCanonicalURL_Invalid(t *testing.T) {
	_, err := CanonicalURL("")
	assert.Error(t, err)

	_, err = CanonicalURL("   ")
	assert.Error(t, err)

	_, err = CanonicalURL("not-a-url")
	assert.Error(t, err, "url without host is rejected")
}

func TestHost(t *testing.T) {
	assert.Equal(t, "news.example.com", Host("https://News.Example.com/article/1"))
	assert.Equal(t, "", Host("://bad"))
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "hello\n\n  world\t!", "hello world !"},
		{"drops control chars", "a\x00b\x1fc", "abc"},
		{"unicode spaces", "a b c", "a b c"},
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 20))
	assert.Equal(t, "hello…", Snippet("hello world again", 8))
	assert.Equal(t, "", Snippet("anything", 0))
}
