package bilibili

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Elem is one decoded comment of a segment reply.
type Elem struct {
	ID         int64
	ProgressMS int32
	Mode       int32
	FontSize   int32
	Color      uint32
	MidHash    string
	Content    string
	CTime      int64
	Weight     int32
	Pool       int32
}

const (
	segElems = 1

	elemID       = 1
	elemProgress = 2
	elemMode     = 3
	elemFontSize = 4
	elemColor    = 5
	elemMidHash  = 6
	elemContent  = 7
	elemCTime    = 8
	elemWeight   = 9
	elemPool     = 11

	viewSegConfig = 4
	segTotal      = 2
)

// DecodeSegment parses a segment reply into its comment elements. Unknown
// fields are skipped.
func DecodeSegment(b []byte) ([]Elem, error) {
	var elems []Elem
	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
		if num != segElems || typ != protowire.BytesType {
			return nil
		}
		elem, err := decodeElem(value)
		if err != nil {
			return err
		}
		elems = append(elems, elem)
		return nil
	})
	return elems, err
}

// DecodeSegmentTotal reads the segment count from a comment view reply.
func DecodeSegmentTotal(b []byte) (int, error) {
	total := 0
	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
		if num != viewSegConfig || typ != protowire.BytesType {
			return nil
		}
		return walk(value, func(num protowire.Number, typ protowire.Type, _ []byte, v uint64) error {
			if num == segTotal && typ == protowire.VarintType {
				total = int(int64(v))
			}
			return nil
		})
	})
	return total, err
}

func decodeElem(b []byte) (Elem, error) {
	var elem Elem
	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte, v uint64) error {
		switch typ {
		case protowire.VarintType:
			switch num {
			case elemID:
				elem.ID = int64(v)
			case elemProgress:
				elem.ProgressMS = int32(v)
			case elemMode:
				elem.Mode = int32(v)
			case elemFontSize:
				elem.FontSize = int32(v)
			case elemColor:
				elem.Color = uint32(v)
			case elemCTime:
				elem.CTime = int64(v)
			case elemWeight:
				elem.Weight = int32(v)
			case elemPool:
				elem.Pool = int32(v)
			}
		case protowire.BytesType:
			switch num {
			case elemMidHash:
				elem.MidHash = string(value)
			case elemContent:
				elem.Content = string(value)
			}
		}
		return nil
	})
	return elem, err
}

// walk visits every top-level field of a protobuf message. Varints arrive in
// v, length-delimited payloads in value; other wire types are skipped.
func walk(b []byte, visit func(num protowire.Number, typ protowire.Type, value []byte, v uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("consume tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			if err := visit(num, typ, nil, v); err != nil {
				return err
			}
		case protowire.BytesType:
			value, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			if err := visit(num, typ, value, 0); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
