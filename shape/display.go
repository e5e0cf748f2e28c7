package shape

import (
	"strconv"
	"strings"
)

// Display renders the shape graph rooted at root as a single line. Every
// distinct id is expanded exactly once, at its first mention; later
// references print only the `<kind>_<id>` token, so shared sub-shapes never
// blow up the output.
//
// Grammar by kind:
//
//	primitives   u32_1, str_2, f64_3, ...
//	option       opt_4(<inner>)
//	sequence     seq_5(<element>)
//	map          map_6(<key>, <value>)
//	tuple        tuple_7(<e0>, <e1>, ...)
//	struct       Name_8 { field: <shape>, optional?: <shape> }
//	untagged     union_9(<m0>, <m1>, ...)
//	tagged enum  enum_10{Variant: <payload-or-unit>, ...}
func Display(p *Pool, root ID) (string, error) {
	d := displayer{pool: p, seen: make(map[ID]bool)}
	if err := d.write(root); err != nil {
		return "", err
	}
	return d.b.String(), nil
}

type displayer struct {
	pool *Pool
	seen map[ID]bool
	b    strings.Builder
}

func (d *displayer) write(id ID) error {
	n, err := d.pool.Resolve(id)
	if err != nil {
		return err
	}
	tok := token(n, id)
	d.b.WriteString(tok)
	if d.seen[id] {
		return nil
	}
	d.seen[id] = true

	switch n.Kind {
	case KindOption:
		return d.wrap("(", ")", n.Inner)
	case KindSeq:
		return d.wrap("(", ")", n.Elem)
	case KindMap:
		return d.wrap("(", ")", n.Key, n.Value)
	case KindTuple:
		return d.wrap("(", ")", n.Elems...)
	case KindStruct:
		d.b.WriteString(" { ")
		for i, f := range n.Fields {
			if i > 0 {
				d.b.WriteString(", ")
			}
			d.b.WriteString(f.Name)
			if f.Optional {
				d.b.WriteByte('?')
			}
			d.b.WriteString(": ")
			if err := d.write(f.Shape); err != nil {
				return err
			}
		}
		d.b.WriteString(" }")
	case KindEnum:
		if n.Tagging == TagUntagged {
			members := make([]ID, len(n.Variants))
			for i, v := range n.Variants {
				members[i] = v.Payload
			}
			return d.wrap("(", ")", members...)
		}
		d.b.WriteByte('{')
		for i, v := range n.Variants {
			if i > 0 {
				d.b.WriteString(", ")
			}
			d.b.WriteString(v.Name)
			d.b.WriteString(": ")
			if err := d.write(v.Payload); err != nil {
				return err
			}
		}
		d.b.WriteByte('}')
	}
	return nil
}

func (d *displayer) wrap(open, close string, children ...ID) error {
	d.b.WriteString(open)
	for i, c := range children {
		if i > 0 {
			d.b.WriteString(", ")
		}
		if err := d.write(c); err != nil {
			return err
		}
	}
	d.b.WriteString(close)
	return nil
}

// token renders the `<kind>_<id>` reference form of a node
func token(n *Node, id ID) string {
	return kindToken(n) + "_" + strconv.FormatUint(uint64(id), 10)
}

func kindToken(n *Node) string {
	switch n.Kind {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		prefix := "u"
		if n.Signed {
			prefix = "s"
		}
		return prefix + strconv.Itoa(int(n.Width))
	case KindFloat:
		return "f" + strconv.Itoa(int(n.Width))
	case KindChar:
		return "char"
	case KindString:
		return "str"
	case KindBytes:
		return "bytes"
	case KindOption:
		return "opt"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	case KindStruct:
		return n.Name
	case KindEnum:
		if n.Tagging == TagUntagged {
			return "union"
		}
		return "enum"
	}
	return n.Kind.String()
}
