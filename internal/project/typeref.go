package project

import (
	"fmt"
	"strings"
)

// TypeRef is a parsed type reference:
//
//	[module:]Namespace.Name[<Arg, ...>][[]...]
//
// The namespace is everything before the last dot.
type TypeRef struct {
	Module    string
	Namespace string
	Name      string
	Args      []TypeRef
	Rank      int // number of trailing "[]"
}

const refDelims = "<>,[]"

// ParseTypeRef parses a type reference.
func ParseTypeRef(s string) (TypeRef, error) {
	p := refParser{src: s}
	ref, err := p.parse()
	if err != nil {
		return TypeRef{}, fmt.Errorf("type reference %q: %w", s, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeRef{}, fmt.Errorf("type reference %q: unexpected %q at offset %d", s, p.src[p.pos:], p.pos)
	}
	return ref, nil
}

func (r TypeRef) String() string {
	var sb strings.Builder
	if r.Module != "" {
		sb.WriteString(r.Module)
		sb.WriteByte(':')
	}
	if r.Namespace != "" {
		sb.WriteString(r.Namespace)
		sb.WriteByte('.')
	}
	sb.WriteString(r.Name)
	if len(r.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range r.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	for range r.Rank {
		sb.WriteString("[]")
	}
	return sb.String()
}

type refParser struct {
	src string
	pos int
}

func (p *refParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *refParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *refParser) parse() (TypeRef, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune(refDelims, rune(p.src[p.pos])) {
		p.pos++
	}
	head := strings.TrimSpace(p.src[start:p.pos])
	if head == "" {
		return TypeRef{}, fmt.Errorf("missing type name at offset %d", start)
	}

	var ref TypeRef
	if i := strings.IndexByte(head, ':'); i >= 0 {
		ref.Module = strings.TrimSpace(head[:i])
		head = strings.TrimSpace(head[i+1:])
		if ref.Module == "" || head == "" {
			return TypeRef{}, fmt.Errorf("malformed module qualifier in %q", p.src[start:p.pos])
		}
	}
	if strings.ContainsRune(head, ':') {
		return TypeRef{}, fmt.Errorf("more than one module qualifier in %q", p.src[start:p.pos])
	}
	if i := strings.LastIndexByte(head, '.'); i >= 0 {
		ref.Namespace, ref.Name = head[:i], head[i+1:]
	} else {
		ref.Name = head
	}
	if ref.Name == "" {
		return TypeRef{}, fmt.Errorf("empty type name in %q", head)
	}

	p.skipSpace()
	if p.peek() == '<' {
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return TypeRef{}, err
			}
			ref.Args = append(ref.Args, arg)
			p.skipSpace()
			switch p.peek() {
			case ',':
				p.pos++
				continue
			case '>':
				p.pos++
			default:
				return TypeRef{}, fmt.Errorf("expected ',' or '>' at offset %d", p.pos)
			}
			break
		}
	}
	for {
		p.skipSpace()
		if !strings.HasPrefix(p.src[p.pos:], "[]") {
			break
		}
		ref.Rank++
		p.pos += 2
	}
	return ref, nil
}
