package database

const maxTypeDepth = 16

// validColumnType reports whether s is a single column type expression:
//
//	type := name [ "(" arg { "," arg } ")" ]
//	arg  := number | string [ "=" number ] | type [ type ]
//
// Commas are only legal inside parentheses, so an override can never add
// another column definition to the DDL.
func validColumnType(s string) bool {
	p := &typeParser{src: s}
	p.skipSpace()
	if !p.parseType(0) {
		return false
	}
	p.skipSpace()
	return p.pos == len(p.src)
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) skipSpace() {
	for p.peek() == ' ' {
		p.pos++
	}
}

func (p *typeParser) parseType(depth int) bool {
	if depth > maxTypeDepth || !p.parseName() {
		return false
	}
	p.skipSpace()
	if p.peek() != '(' {
		return true
	}
	p.pos++
	for {
		p.skipSpace()
		if !p.parseArg(depth + 1) {
			return false
		}
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return true
		default:
			return false
		}
	}
}

func (p *typeParser) parseArg(depth int) bool {
	switch c := p.peek(); {
	case c == '-' || isDigit(c):
		return p.parseNumber()
	case c == '\'':
		if !p.parseString() {
			return false
		}
		p.skipSpace()
		if p.peek() == '=' {
			p.pos++
			p.skipSpace()
			return p.parseNumber()
		}
		return true
	case isLetter(c):
		if !p.parseType(depth) {
			return false
		}
		// Named tuple element: "name Type"
		p.skipSpace()
		if isLetter(p.peek()) {
			return p.parseType(depth)
		}
		return true
	default:
		return false
	}
}

func (p *typeParser) parseName() bool {
	if !isLetter(p.peek()) {
		return false
	}
	for c := p.peek(); isLetter(c) || isDigit(c) || c == '_'; c = p.peek() {
		p.pos++
	}
	return true
}

func (p *typeParser) parseNumber() bool {
	if p.peek() == '-' {
		p.pos++
	}
	if !p.digits() {
		return false
	}
	if p.peek() == '.' {
		p.pos++
		return p.digits()
	}
	return true
}

func (p *typeParser) digits() bool {
	start := p.pos
	for isDigit(p.peek()) {
		p.pos++
	}
	return p.pos > start
}

// parseString accepts a single-quoted literal without escapes or control bytes.
func (p *typeParser) parseString() bool {
	p.pos++
	for {
		switch c := p.peek(); {
		case c < ' ' || c == '\\':
			return false
		case c == '\'':
			p.pos++
			return true
		}
		p.pos++
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
