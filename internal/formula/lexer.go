package formula

import (
	"strconv"

	"lotus/internal/cell"
	"lotus/internal/ref"
)

type TokenKind int

const (
	TokNumber TokenKind = iota
	TokString
	TokCell
	TokFunc
	TokIdent
	TokOperator   // + - * / ^ %
	TokComparison // = <> != < > <= >=
	TokLParen
	TokRParen
	TokComma
	TokColon
	TokError // error literal such as #REF!
)

type Token struct {
	Kind TokenKind
	Text string
	Num  float64        // TokNumber
	Err  cell.ErrorKind // TokError
	Pos  int
}

// Tokenize turns a formula body into tokens. It never fails: characters it
// does not understand are skipped, and the damage surfaces later as an error
// value when the evaluator runs out of sense to make.
func Tokenize(text string) []Token {
	var toks []Token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c >= '0' && c <= '9':
			i = scanNumber(text, i, &toks)
		case c == '.':
			if i+1 < len(text) && text[i+1] == '.' {
				// ".." is the old range separator
				toks = append(toks, Token{Kind: TokColon, Text: ":", Pos: i})
				i += 2
			} else if i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9' {
				i = scanNumber(text, i, &toks)
			} else {
				i++
			}
		case c == '"':
			i = scanString(text, i, &toks)
		case isIdentStart(c):
			i = scanIdentOrCell(text, i, &toks)
		case c == '@':
			// function sigil, carries no meaning of its own
			i++
		case c == '#':
			i = scanErrorLit(text, i, &toks)
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '^' || c == '%':
			toks = append(toks, Token{Kind: TokOperator, Text: string(c), Pos: i})
			i++
		case c == '=':
			toks = append(toks, Token{Kind: TokComparison, Text: "=", Pos: i})
			i++
		case c == '<':
			if i+1 < len(text) && (text[i+1] == '=' || text[i+1] == '>') {
				toks = append(toks, Token{Kind: TokComparison, Text: text[i : i+2], Pos: i})
				i += 2
			} else {
				toks = append(toks, Token{Kind: TokComparison, Text: "<", Pos: i})
				i++
			}
		case c == '>':
			if i+1 < len(text) && text[i+1] == '=' {
				toks = append(toks, Token{Kind: TokComparison, Text: ">=", Pos: i})
				i += 2
			} else {
				toks = append(toks, Token{Kind: TokComparison, Text: ">", Pos: i})
				i++
			}
		case c == '!':
			if i+1 < len(text) && text[i+1] == '=' {
				toks = append(toks, Token{Kind: TokComparison, Text: "!=", Pos: i})
				i += 2
			} else {
				i++
			}
		case c == '(':
			toks = append(toks, Token{Kind: TokLParen, Text: "(", Pos: i})
			i++
		case c == ')':
			toks = append(toks, Token{Kind: TokRParen, Text: ")", Pos: i})
			i++
		case c == ',':
			toks = append(toks, Token{Kind: TokComma, Text: ",", Pos: i})
			i++
		case c == ':':
			toks = append(toks, Token{Kind: TokColon, Text: ":", Pos: i})
			i++
		default:
			i++
		}
	}
	return toks
}

func scanNumber(text string, i int, toks *[]Token) int {
	start := i
	seenDot := false
	for i < len(text) {
		c := text[i]
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		if c == '.' && !seenDot {
			// stop before a range separator
			if i+1 < len(text) && text[i+1] == '.' {
				break
			}
			seenDot = true
			i++
			continue
		}
		break
	}
	// optional exponent: e/E with an optionally signed digit run
	if i < len(text) && (text[i] == 'e' || text[i] == 'E') {
		j := i + 1
		if j < len(text) && (text[j] == '+' || text[j] == '-') {
			j++
		}
		if j < len(text) && text[j] >= '0' && text[j] <= '9' {
			for j < len(text) && text[j] >= '0' && text[j] <= '9' {
				j++
			}
			i = j
		}
	}
	lit := text[start:i]
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return i
	}
	*toks = append(*toks, Token{Kind: TokNumber, Text: lit, Num: f, Pos: start})
	return i
}

func scanString(text string, i int, toks *[]Token) int {
	start := i
	i++ // opening quote
	for i < len(text) && text[i] != '"' {
		i++
	}
	body := text[start+1 : i]
	if i < len(text) {
		i++ // closing quote
	}
	*toks = append(*toks, Token{Kind: TokString, Text: body, Pos: start})
	return i
}

func scanIdentOrCell(text string, i int, toks *[]Token) int {
	start := i
	for i < len(text) && isIdentChar(text[i]) {
		i++
	}
	word := text[start:i]

	// identifier directly followed by '(' is a function name
	j := i
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	if j < len(text) && text[j] == '(' {
		*toks = append(*toks, Token{Kind: TokFunc, Text: word, Pos: start})
		return i
	}
	if _, err := ref.ParseCell(word); err == nil {
		*toks = append(*toks, Token{Kind: TokCell, Text: word, Pos: start})
		return i
	}
	*toks = append(*toks, Token{Kind: TokIdent, Text: word, Pos: start})
	return i
}

func scanErrorLit(text string, i int, toks *[]Token) int {
	start := i
	i++ // '#'
	for i < len(text) {
		c := text[i]
		if c == '!' || c == '?' {
			i++
			break
		}
		if isIdentChar(c) || c == '/' {
			i++
			continue
		}
		break
	}
	if kind, ok := cell.ErrorFromTag(text[start:i]); ok {
		*toks = append(*toks, Token{Kind: TokError, Text: text[start:i], Err: kind, Pos: start})
	}
	return i
}

func isIdentStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '$' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
