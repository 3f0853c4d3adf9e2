package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// token is a flattened view of one tokenizer step. raw preserves the exact
// source bytes so fragments can be re-joined without re-rendering.
type token struct {
	kind  html.TokenType
	tag   string
	attrs map[string]string
	text  string
	raw   string
}

// tokenize splits s into tokens. Invalid UTF-8 is replaced up front so every
// extracted field survives a JSON round trip unchanged.
func tokenize(s string) []token {
	s = strings.ToValidUTF8(s, "\uFFFD")
	z := html.NewTokenizer(strings.NewReader(s))
	var out []token
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		tok := token{kind: tt, raw: string(z.Raw())}
		switch tt {
		case html.TextToken:
			tok.text = string(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, hasAttr := z.TagName()
			tok.tag = string(name)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if tok.attrs == nil {
					tok.attrs = make(map[string]string)
				}
				tok.attrs[string(key)] = string(val)
			}
		}
		out = append(out, tok)
	}
}

func (t token) isStart(tag string) bool {
	return (t.kind == html.StartTagToken || t.kind == html.SelfClosingTagToken) && t.tag == tag
}

func (t token) isEnd(tag string) bool {
	return t.kind == html.EndTagToken && t.tag == tag
}

func (t token) attr(key string) string {
	return t.attrs[key]
}

func (t token) hasClass(class string) bool {
	for _, c := range strings.Fields(t.attr("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// textOf joins the text tokens of toks and collapses runs of whitespace.
func textOf(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		if t.kind == html.TextToken {
			b.WriteString(t.text)
		}
	}
	return collapse(b.String())
}

func rawOf(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.raw)
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// elementText returns the collapsed text of the element opened at toks[i]
// and the index of its closing tag. Unclosed elements yield ok=false.
func elementText(toks []token, i int) (string, int, bool) {
	tag := toks[i].tag
	if toks[i].kind == html.SelfClosingTagToken {
		return "", i, true
	}
	depth := 0
	for j := i; j < len(toks); j++ {
		switch {
		case toks[j].isStart(tag) && toks[j].kind == html.StartTagToken:
			depth++
		case toks[j].isEnd(tag):
			depth--
			if depth == 0 {
				return textOf(toks[i+1 : j]), j, true
			}
		}
	}
	return "", 0, false
}

// textAfter collects text following toks[i] until a stop token is reached.
// Reaching the end of input without a stop token yields ok=false.
func textAfter(toks []token, i int, stop func(token) bool) (string, bool) {
	for j := i + 1; j < len(toks); j++ {
		if stop(toks[j]) {
			return textOf(toks[i+1 : j]), true
		}
	}
	return "", false
}

// labelled finds the first element named tag whose text equals label and
// returns the index of its closing tag.
func labelled(toks []token, tag, label string) (int, bool) {
	for i := range toks {
		if !toks[i].isStart(tag) {
			continue
		}
		text, end, ok := elementText(toks, i)
		if ok && text == label {
			return end, true
		}
	}
	return 0, false
}
