/*
Copyright 2023 The Koordinator Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package schedconf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

const itemElement = "entry"

// MapItem is one element of a MapSlice.
type MapItem struct {
	Key   string
	Value interface{}
}

// MapSlice is a map which keeps the order of its keys when serialized.
type MapSlice []MapItem

// GenerateQueueUpdateXML serializes a nested structure of maps, MapSlices, slices and
// scalars into a <sched-conf> document. Map keys become element names in sorted order,
// every slice item becomes an <entry> element whatever the parent key is, so shapes
// beyond the built-in mutations can be expressed, e.g.
//
//	MapSlice{{"global-updates", []interface{}{MapSlice{{"key", "k"}, {"value", 0}}}}}
func GenerateQueueUpdateXML(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(buf)
	enc.Indent("", "  ")
	if err := encodeElement(enc, "sched-conf", v); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeElement(enc *xml.Encoder, name string, v interface{}) error {
	if name == "" {
		return fmt.Errorf("empty element name for value %v", v)
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeValue(enc, v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return enc.EncodeToken(start.End())
}

func encodeValue(enc *xml.Encoder, v interface{}) error {
	switch t := v.(type) {
	case nil:
		return nil
	case MapSlice:
		for _, item := range t {
			if err := encodeElement(enc, item.Key, item.Value); err != nil {
				return err
			}
		}
		return nil
	case Entry:
		return encodeValue(enc, MapSlice{{"key", t.Key}, {"value", t.Value}})
	case string:
		return enc.EncodeToken(xml.CharData(t))
	case []byte:
		return enc.EncodeToken(xml.CharData(t))
	case bool:
		return enc.EncodeToken(xml.CharData(strconv.FormatBool(t)))
	case float32:
		return enc.EncodeToken(xml.CharData(strconv.FormatFloat(float64(t), 'f', -1, 32)))
	case float64:
		return enc.EncodeToken(xml.CharData(strconv.FormatFloat(t, 'f', -1, 64)))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return enc.EncodeToken(xml.CharData(strconv.FormatInt(rv.Int(), 10)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return enc.EncodeToken(xml.CharData(strconv.FormatUint(rv.Uint(), 10)))
	case reflect.String:
		return enc.EncodeToken(xml.CharData(rv.String()))
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return encodeValue(enc, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := encodeElement(enc, itemElement, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %v", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		for _, k := range keys {
			value := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
			if err := encodeElement(enc, k, value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported value type %T", v)
}
