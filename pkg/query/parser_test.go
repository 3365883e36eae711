package query

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		terms   []string
		loved   []string
		hated   []string
		phrases []string
	}{
		{
			input: "hello world",
			terms: []string{"hello", "world"},
		},
		{
			input:   `"hello world"`,
			terms:   []string{"hello world"},
			phrases: []string{"hello world"},
		},
		{
			input:   `term "quoted phrase" term2`,
			terms:   []string{"quoted phrase", "term", "term2"},
			phrases: []string{"quoted phrase"},
		},
		{
			input: "Mixed CASE Query",
			terms: []string{"case", "mixed", "query"},
		},
		{
			input: "the cat in the hat",
			terms: []string{"cat", "hat"}, // stop words dropped
		},
		{
			input: "+the cat",
			terms: []string{"cat", "the"}, // modifier bypasses the stop list
			loved: []string{"the"},
		},
		{
			input: "cat -dog",
			terms: []string{"cat", "dog"},
			hated: []string{"dog"},
		},
		{
			input:   `+cat -"big dog"`,
			terms:   []string{"big dog", "cat"},
			loved:   []string{"cat"},
			hated:   []string{"big dog"},
			phrases: []string{"big dog"},
		},
		{
			input: "mother-in-law",
			terms: []string{"law", "mother"}, // "in" is a stop word
		},
		{
			input: "don’t panic",
			terms: []string{"don't", "panic"},
		},
		{
			input: "cat cat cat",
			terms: []string{"cat"}, // deduplicated; wqf keeps the count
		},
		{
			input: "",
			terms: nil,
		},
		{
			input: "?!,",
			terms: nil,
		},
		{
			input: `""`,
			terms: nil,
		},
	}

	p := NewParser()
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := p.Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tc.input, err)
			}
			if terms := got.Terms.Terms(); !sameStrings(terms, tc.terms) {
				t.Errorf("terms = %v, want %v", terms, tc.terms)
			}
			if !sameStrings(got.Loved, tc.loved) {
				t.Errorf("loved = %v, want %v", got.Loved, tc.loved)
			}
			if !sameStrings(got.Hated, tc.hated) {
				t.Errorf("hated = %v, want %v", got.Hated, tc.hated)
			}
			if !sameStrings(got.Phrases, tc.phrases) {
				t.Errorf("phrases = %v, want %v", got.Phrases, tc.phrases)
			}
		})
	}
}

func sameStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	return len(got) == 0 || reflect.DeepEqual(got, want)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unbalanced quote", `cat "big dog`},
		{"bare plus", "+"},
		{"bare minus", "cat -"},
		{"detached modifier", "+ cat"},
		{"modifier on punctuation", "+..."},
		{"modifier on empty phrase", `+""`},
	}

	p := NewParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse(tc.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tc.input)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a *ParseError", err)
			}
			if perr.Msg == "" {
				t.Error("ParseError carries no message")
			}
		})
	}
}

func TestParseWqfCountsDuplicates(t *testing.T) {
	p := NewParser()
	got, err := p.Parse(`cat cat dog "cat dog"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Wqf["cat"] != 2 {
		t.Errorf("wqf[cat] = %d, want 2", got.Wqf["cat"])
	}
	if got.Wqf["dog"] != 1 {
		t.Errorf("wqf[dog] = %d, want 1", got.Wqf["dog"])
	}
	if got.Wqf["cat dog"] != 1 {
		t.Errorf("wqf[cat dog] = %d, want 1", got.Wqf["cat dog"])
	}
}

func TestParseCustomStopWords(t *testing.T) {
	p := &Parser{StopWords: map[string]bool{"cat": true}}
	got, err := p.Parse("cat dog the")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"dog", "the"}
	if terms := got.Terms.Terms(); !reflect.DeepEqual(terms, want) {
		t.Errorf("terms = %v, want %v", terms, want)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello, World!", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"don’t", "don't"},
		{"C++ and Go", "c and go"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The quick brown fox, the lazy dog.", nil)
	want := []string{"quick", "brown", "fox", "lazy", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestParseOp(t *testing.T) {
	if op, err := ParseOp("AND"); err != nil || op != OpAnd {
		t.Errorf("ParseOp(AND) = %v, %v", op, err)
	}
	if op, err := ParseOp(""); err != nil || op != OpOr {
		t.Errorf("ParseOp(\"\") = %v, %v", op, err)
	}
	if _, err := ParseOp("xor"); err == nil {
		t.Error("ParseOp(xor) succeeded, want error")
	}
}
