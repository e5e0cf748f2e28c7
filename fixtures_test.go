package selfwire

import (
	"fmt"

	"github.com/wippyai/selfwire/shape"
)

// record and friends model the canonical scenario: a sequence of structs
// with a required integer and an optional list of untagged members.

type scalarOrText struct {
	isText bool
	text   string
	num    uint32
}

func (u *scalarOrText) DescribeValue(e Encoder) error {
	if u.isText {
		return e.Enum("Untagged", Untagged, 0, "Text", func(e Encoder) error {
			return e.String(u.text)
		})
	}
	return e.Enum("Untagged", Untagged, 1, "Num", func(e Encoder) error {
		return e.Uint32(u.num)
	})
}

func (u *scalarOrText) BuildValue(d Decoder) error {
	return d.Union("Untagged", func(m Member, d Decoder) error {
		switch m.Kind {
		case shape.KindString:
			u.isText = true
			var err error
			u.text, err = d.String()
			return err
		case shape.KindInt:
			var err error
			u.num, err = d.Uint32()
			return err
		}
		return fmt.Errorf("unexpected union member kind %s", m.Kind)
	})
}

type record struct {
	id      uint32
	hasTags bool
	tags    []scalarOrText
}

func (r *record) DescribeValue(e Encoder) error {
	return e.Struct("TopLevel", func(s StructEncoder) error {
		if err := s.Field("int32", func(e Encoder) error { return e.Uint32(r.id) }); err != nil {
			return err
		}
		return s.OptionalField("untaggeds", r.hasTags, func(e Encoder) error {
			return e.Seq(len(r.tags), func(i int, e Encoder) error {
				return r.tags[i].DescribeValue(e)
			})
		})
	})
}

func (r *record) BuildValue(d Decoder) error {
	return d.Struct("TopLevel", func(s StructDecoder) error {
		if err := s.Field("int32", func(d Decoder) error {
			var err error
			r.id, err = d.Uint32()
			return err
		}); err != nil {
			return err
		}
		present, err := s.OptionalField("untaggeds", func(d Decoder) error {
			return d.Seq(func(n int) { r.tags = make([]scalarOrText, n) }, func(i int, d Decoder) error {
				return r.tags[i].BuildValue(d)
			})
		})
		r.hasTags = present
		return err
	})
}

type recordList []record

func (l *recordList) DescribeValue(e Encoder) error {
	return e.Seq(len(*l), func(i int, e Encoder) error {
		return (*l)[i].DescribeValue(e)
	})
}

func (l *recordList) BuildValue(d Decoder) error {
	return d.Seq(func(n int) { *l = make(recordList, n) }, func(i int, d Decoder) error {
		return (*l)[i].BuildValue(d)
	})
}

func sampleRecords() recordList {
	return recordList{
		{id: 10, hasTags: true, tags: []scalarOrText{
			{isText: true, text: "hello"},
			{num: 10},
		}},
		{id: 20},
	}
}

// mode is a sparse tagged enum: static indices 0 and 2, one payload-less
type mode struct {
	kind    uint32
	retries uint32
}

func (m *mode) DescribeValue(e Encoder) error {
	switch m.kind {
	case 0:
		return e.Enum("Mode", External, 0, "Off", nil)
	case 2:
		return e.Enum("Mode", External, 2, "Retry", func(e Encoder) error {
			return e.Uint32(m.retries)
		})
	}
	return fmt.Errorf("unknown mode %d", m.kind)
}

func (m *mode) BuildValue(d Decoder) error {
	return d.Enum("Mode", func(index uint32, name string, d Decoder) error {
		m.kind = index
		switch index {
		case 0:
			return d.Unit()
		case 2:
			var err error
			m.retries, err = d.Uint32()
			return err
		}
		return fmt.Errorf("unknown mode variant %d (%s)", index, name)
	})
}

type modeList []mode

func (l *modeList) DescribeValue(e Encoder) error {
	return e.Seq(len(*l), func(i int, e Encoder) error {
		return (*l)[i].DescribeValue(e)
	})
}

func (l *modeList) BuildValue(d Decoder) error {
	return d.Seq(func(n int) { *l = make(modeList, n) }, func(i int, d Decoder) error {
		return (*l)[i].BuildValue(d)
	})
}

// allKinds exercises every node kind in one value
type allKinds struct {
	flag   bool
	i8     int8
	i16    int16
	i32    int32
	i64    int64
	u8     uint8
	u16    uint16
	u32    uint32
	u64    uint64
	f32    float32
	f64    float64
	ch     rune
	text   string
	raw    []byte
	opt    *uint32
	nums   []int64
	scores map[string]uint32
	pair   struct {
		ok    bool
		label string
	}
	modes modeList
}

func sampleAllKinds() *allKinds {
	n := uint32(99)
	v := &allKinds{
		flag: true,
		i8:   -8, i16: -1600, i32: 320000, i64: -64000000000,
		u8: 8, u16: 1600, u32: 320000, u64: 64000000000,
		f32: 1.5, f64: -2.25,
		ch:   '語',
		text: "hello",
		raw:  []byte{0xde, 0xad},
		opt:  &n,
		nums: []int64{-1, 0, 1},
		scores: map[string]uint32{
			"a": 1,
			"b": 2,
		},
		modes: modeList{{kind: 0}, {kind: 2, retries: 3}},
	}
	v.pair.ok = true
	v.pair.label = "pair"
	return v
}

func (v *allKinds) DescribeValue(e Encoder) error {
	return e.Struct("AllKinds", func(s StructEncoder) error {
		steps := []struct {
			name string
			fn   func(Encoder) error
		}{
			{"flag", func(e Encoder) error { return e.Bool(v.flag) }},
			{"i8", func(e Encoder) error { return e.Int8(v.i8) }},
			{"i16", func(e Encoder) error { return e.Int16(v.i16) }},
			{"i32", func(e Encoder) error { return e.Int32(v.i32) }},
			{"i64", func(e Encoder) error { return e.Int64(v.i64) }},
			{"u8", func(e Encoder) error { return e.Uint8(v.u8) }},
			{"u16", func(e Encoder) error { return e.Uint16(v.u16) }},
			{"u32", func(e Encoder) error { return e.Uint32(v.u32) }},
			{"u64", func(e Encoder) error { return e.Uint64(v.u64) }},
			{"f32", func(e Encoder) error { return e.Float32(v.f32) }},
			{"f64", func(e Encoder) error { return e.Float64(v.f64) }},
			{"ch", func(e Encoder) error { return e.Char(v.ch) }},
			{"text", func(e Encoder) error { return e.String(v.text) }},
			{"raw", func(e Encoder) error { return e.Bytes(v.raw) }},
			{"opt", func(e Encoder) error {
				if v.opt == nil {
					return e.None()
				}
				return e.Some(func(e Encoder) error { return e.Uint32(*v.opt) })
			}},
			{"nums", func(e Encoder) error {
				return e.Seq(len(v.nums), func(i int, e Encoder) error { return e.Int64(v.nums[i]) })
			}},
			{"scores", func(e Encoder) error {
				keys := make([]string, 0, len(v.scores))
				for k := range v.scores {
					keys = append(keys, k)
				}
				return e.Map(len(keys),
					func(i int, e Encoder) error { return e.String(keys[i]) },
					func(i int, e Encoder) error { return e.Uint32(v.scores[keys[i]]) },
				)
			}},
			{"pair", func(e Encoder) error {
				return e.Tuple(2, func(i int, e Encoder) error {
					if i == 0 {
						return e.Bool(v.pair.ok)
					}
					return e.String(v.pair.label)
				})
			}},
			{"modes", v.modes.DescribeValue},
			{"unit", func(e Encoder) error { return e.Unit() }},
		}
		for _, st := range steps {
			if err := s.Field(st.name, st.fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (v *allKinds) BuildValue(d Decoder) error {
	return d.Struct("AllKinds", func(s StructDecoder) error {
		steps := []struct {
			name string
			fn   func(Decoder) error
		}{
			{"flag", func(d Decoder) error { var err error; v.flag, err = d.Bool(); return err }},
			{"i8", func(d Decoder) error { var err error; v.i8, err = d.Int8(); return err }},
			{"i16", func(d Decoder) error { var err error; v.i16, err = d.Int16(); return err }},
			{"i32", func(d Decoder) error { var err error; v.i32, err = d.Int32(); return err }},
			{"i64", func(d Decoder) error { var err error; v.i64, err = d.Int64(); return err }},
			{"u8", func(d Decoder) error { var err error; v.u8, err = d.Uint8(); return err }},
			{"u16", func(d Decoder) error { var err error; v.u16, err = d.Uint16(); return err }},
			{"u32", func(d Decoder) error { var err error; v.u32, err = d.Uint32(); return err }},
			{"u64", func(d Decoder) error { var err error; v.u64, err = d.Uint64(); return err }},
			{"f32", func(d Decoder) error { var err error; v.f32, err = d.Float32(); return err }},
			{"f64", func(d Decoder) error { var err error; v.f64, err = d.Float64(); return err }},
			{"ch", func(d Decoder) error { var err error; v.ch, err = d.Char(); return err }},
			{"text", func(d Decoder) error { var err error; v.text, err = d.String(); return err }},
			{"raw", func(d Decoder) error { var err error; v.raw, err = d.Bytes(); return err }},
			{"opt", func(d Decoder) error {
				present, err := d.Option(func(d Decoder) error {
					n, err := d.Uint32()
					v.opt = &n
					return err
				})
				if !present {
					v.opt = nil
				}
				return err
			}},
			{"nums", func(d Decoder) error {
				return d.Seq(func(n int) { v.nums = make([]int64, n) }, func(i int, d Decoder) error {
					var err error
					v.nums[i], err = d.Int64()
					return err
				})
			}},
			{"scores", func(d Decoder) error {
				var key string
				return d.Map(
					func(n int) { v.scores = make(map[string]uint32, n) },
					func(i int, d Decoder) error { var err error; key, err = d.String(); return err },
					func(i int, d Decoder) error {
						val, err := d.Uint32()
						if err == nil {
							v.scores[key] = val
						}
						return err
					},
				)
			}},
			{"pair", func(d Decoder) error {
				return d.Tuple(2, func(i int, d Decoder) error {
					var err error
					if i == 0 {
						v.pair.ok, err = d.Bool()
					} else {
						v.pair.label, err = d.String()
					}
					return err
				})
			}},
			{"modes", v.modes.BuildValue},
			{"unit", func(d Decoder) error { return d.Unit() }},
		}
		for _, st := range steps {
			if err := s.Field(st.name, st.fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// point is a minimal struct for skew and fingerprint tests
type point struct {
	x, y int32
}

func (p *point) DescribeValue(e Encoder) error {
	return e.Struct("Point", func(s StructEncoder) error {
		if err := s.Field("x", func(e Encoder) error { return e.Int32(p.x) }); err != nil {
			return err
		}
		return s.Field("y", func(e Encoder) error { return e.Int32(p.y) })
	})
}

func (p *point) BuildValue(d Decoder) error {
	return d.Struct("Point", func(s StructDecoder) error {
		if err := s.Field("x", func(d Decoder) error { var err error; p.x, err = d.Int32(); return err }); err != nil {
			return err
		}
		return s.Field("y", func(d Decoder) error { var err error; p.y, err = d.Int32(); return err })
	})
}

// point3 is a later version of point with an extra field
type point3 struct {
	x, y, z int32
}

func (p *point3) DescribeValue(e Encoder) error {
	return e.Struct("Point", func(s StructEncoder) error {
		if err := s.Field("x", func(e Encoder) error { return e.Int32(p.x) }); err != nil {
			return err
		}
		if err := s.Field("y", func(e Encoder) error { return e.Int32(p.y) }); err != nil {
			return err
		}
		return s.Field("z", func(e Encoder) error { return e.Int32(p.z) })
	})
}

func (p *point3) BuildValue(d Decoder) error {
	return d.Struct("Point", func(s StructDecoder) error {
		if err := s.Field("x", func(d Decoder) error { var err error; p.x, err = d.Int32(); return err }); err != nil {
			return err
		}
		if err := s.Field("y", func(d Decoder) error { var err error; p.y, err = d.Int32(); return err }); err != nil {
			return err
		}
		return s.Field("z", func(d Decoder) error { var err error; p.z, err = d.Int32(); return err })
	})
}

// emptyStruct has a name and no fields at all
type emptyStruct struct{}

func (emptyStruct) DescribeValue(e Encoder) error {
	return e.Struct("Empty", func(StructEncoder) error { return nil })
}

func (emptyStruct) BuildValue(d Decoder) error {
	return d.Struct("Empty", func(StructDecoder) error { return nil })
}
