// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package objstream

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Describe prints a human-readable dump of a saved document to w. It
// works purely on the wire structure and does not require the
// document's classes to be registered, which makes it usable for
// inspecting documents from foreign builds. Diagnostic output only; the
// layout is not stable.
func Describe(r io.Reader, w io.Writer) error {
	var doc document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	fmt.Fprintf(w, "format version %d, %d object(s)\n", doc.Version, len(doc.Objects))
	for i, obj := range doc.Objects {
		fmt.Fprintf(w, "[%d] %s.%s\n", i, obj.Plugin, obj.Class)
		for _, f := range obj.Fields {
			switch f.Kind {
			case wireProperty:
				var v any
				if err := msgpack.Unmarshal(f.Value, &v); err != nil {
					fmt.Fprintf(w, "    %s = <%d byte(s), undecodable: %v>\n", f.Identifier, len(f.Value), err)
				} else {
					fmt.Fprintf(w, "    %s = %v\n", f.Identifier, v)
				}
			case wireReference:
				if f.Ref == -1 {
					fmt.Fprintf(w, "    %s -> nil\n", f.Identifier)
				} else {
					fmt.Fprintf(w, "    %s -> [%d]\n", f.Identifier, f.Ref)
				}
			case wireVectorReference:
				fmt.Fprintf(w, "    %s -> %v\n", f.Identifier, f.Refs)
			default:
				fmt.Fprintf(w, "    %s: unknown kind %d\n", f.Identifier, f.Kind)
			}
		}
	}
	return nil
}
