package typeval

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/funvibe/structype/internal/config"
	"github.com/funvibe/structype/internal/typedoc"
	"github.com/funvibe/structype/internal/typesystem"
)

// DocumentHash fingerprints everything a document's results depend on:
// its declarations, its queries and the evaluation limits in cfg.
func DocumentHash(doc *typedoc.Document, cfg config.Config) string {
	d := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			d.WriteString(p)
			d.Write([]byte{0})
		}
	}
	writeType := func(t typesystem.Type) {
		if t == nil {
			write("")
			return
		}
		write(strconv.FormatUint(t.Hash(), 16))
	}

	write(strconv.Itoa(cfg.MaxDepth), cfg.TemplateTimeout.String())
	for _, decl := range doc.Declarations {
		write("decl", decl.Name)
		for _, p := range decl.Params {
			write(p.Name)
			writeType(p.Constraint)
			writeType(p.Default)
		}
		writeType(decl.Body)
	}
	for _, q := range doc.Queries {
		write("query", q.Name, string(q.Kind), q.Decl, strconv.FormatBool(q.Capture))
		writeType(q.Type)
		writeType(q.Source)
		writeType(q.Target)
		for _, a := range q.Args {
			writeType(a)
		}
		if len(q.Bindings) > 0 {
			write(strconv.FormatUint(q.Bindings.Hash(), 16))
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// resultKey identifies stored results. A document may use aliases declared
// by documents loaded before it, so the checker's declarations are part of
// the key.
func resultKey(docHash string, declarations uint64) string {
	return docHash + "." + strconv.FormatUint(declarations, 16)
}
