package catalog

import (
	"encoding/json"

	"github.com/golang/snappy"
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// Catalog blobs are snappy-compressed JSON. Datums inside bound
// declarations use the tagged form from pkg/types so that INTEGER
// values survive the round trip as int64 instead of decaying to
// float64.

type wireBoundDatum struct {
	Kind  partition.BoundKind `json:"k"`
	Value json.RawMessage     `json:"v,omitempty"`
}

type wireList struct {
	Values      []json.RawMessage `json:"values"`
	AcceptsNull bool              `json:"accepts_null,omitempty"`
}

type wireRange struct {
	Lower []wireBoundDatum `json:"lower"`
	Upper []wireBoundDatum `json:"upper"`
}

type wireDeclaration struct {
	Strategy partition.Strategy `json:"strategy"`
	List     *wireList          `json:"list,omitempty"`
	Range    *wireRange         `json:"range,omitempty"`
}

// encodeBlob marshals a plain struct and compresses it.
func encodeBlob(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "encoding catalog blob", err)
	}
	return snappy.Encode(nil, raw), nil
}

// decodeBlob decompresses and unmarshals a catalog blob.
func decodeBlob(blob []byte, v interface{}) error {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "decompressing catalog blob", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "decoding catalog blob", err)
	}
	return nil
}

// EncodeDeclaration serializes a bound declaration to its catalog blob.
func EncodeDeclaration(d *partition.Declaration) ([]byte, error) {
	wire, err := declarationToWire(d)
	if err != nil {
		return nil, err
	}
	return encodeBlob(wire)
}

// DecodeDeclaration deserializes a bound declaration catalog blob.
func DecodeDeclaration(blob []byte) (*partition.Declaration, error) {
	var wire wireDeclaration
	if err := decodeBlob(blob, &wire); err != nil {
		return nil, err
	}
	return declarationFromWire(&wire)
}

func declarationToWire(d *partition.Declaration) (*wireDeclaration, error) {
	wire := &wireDeclaration{Strategy: d.Strategy}
	switch {
	case d.List != nil:
		wl := &wireList{AcceptsNull: d.List.AcceptsNull}
		for _, v := range d.List.Values {
			raw, err := types.EncodeDatum(v)
			if err != nil {
				return nil, errors.NewCatalogError(errors.CodeCatalogIO, "encoding list value", err)
			}
			wl.Values = append(wl.Values, raw)
		}
		wire.List = wl
	case d.Range != nil:
		lower, err := boundsToWire(d.Range.Lower)
		if err != nil {
			return nil, err
		}
		upper, err := boundsToWire(d.Range.Upper)
		if err != nil {
			return nil, err
		}
		wire.Range = &wireRange{Lower: lower, Upper: upper}
	}
	return wire, nil
}

func declarationFromWire(wire *wireDeclaration) (*partition.Declaration, error) {
	d := &partition.Declaration{Strategy: wire.Strategy}
	switch {
	case wire.List != nil:
		ld := &partition.ListDeclaration{AcceptsNull: wire.List.AcceptsNull}
		for _, raw := range wire.List.Values {
			v, err := types.DecodeDatum(raw)
			if err != nil {
				return nil, errors.NewCatalogError(errors.CodeCatalogIO, "decoding list value", err)
			}
			ld.Values = append(ld.Values, v)
		}
		d.List = ld
	case wire.Range != nil:
		lower, err := boundsFromWire(wire.Range.Lower)
		if err != nil {
			return nil, err
		}
		upper, err := boundsFromWire(wire.Range.Upper)
		if err != nil {
			return nil, err
		}
		d.Range = &partition.RangeDeclaration{Lower: lower, Upper: upper}
	}
	return d, nil
}

func boundsToWire(bounds []partition.BoundDatum) ([]wireBoundDatum, error) {
	out := make([]wireBoundDatum, len(bounds))
	for i, b := range bounds {
		out[i].Kind = b.Kind
		if b.Kind == partition.Finite {
			raw, err := types.EncodeDatum(b.Value)
			if err != nil {
				return nil, errors.NewCatalogError(errors.CodeCatalogIO, "encoding range bound", err)
			}
			out[i].Value = raw
		}
	}
	return out, nil
}

func boundsFromWire(wire []wireBoundDatum) ([]partition.BoundDatum, error) {
	out := make([]partition.BoundDatum, len(wire))
	for i, w := range wire {
		out[i].Kind = w.Kind
		if w.Kind == partition.Finite {
			v, err := types.DecodeDatum(w.Value)
			if err != nil {
				return nil, errors.NewCatalogError(errors.CodeCatalogIO, "decoding range bound", err)
			}
			out[i].Value = v
		}
	}
	return out, nil
}
