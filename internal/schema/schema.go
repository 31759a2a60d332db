// Package schema validates finished records against embedded JSON schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Name identifies one of the embedded schemas.
type Name string

const (
	Event    Name = "event.schema.json"
	Task     Name = "task.schema.json"
	Contact  Name = "contact.schema.json"
	Analysis Name = "analysis.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// defaultPrinter formats schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

var compiled = map[Name]*jsonschema.Schema{}

func init() {
	for _, name := range []Name{Event, Task, Contact, Analysis} {
		compiled[name] = mustCompileSchema(name)
	}
}

func mustCompileSchema(name Name) *jsonschema.Schema {
	raw, err := files.ReadFile(string(name))
	if err != nil {
		panic(fmt.Sprintf("failed to read embedded %s: %v", name, err))
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(string(name), doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(string(name))
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Validate checks record against the named schema. The record is first
// encoded with its JSON tags, so any value that marshals works. It returns
// one message per violated constraint, or nil when the record conforms.
func Validate(name Name, record any) []string {
	sch, ok := compiled[name]
	if !ok {
		return []string{fmt.Sprintf("unknown schema %q", name)}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return []string{fmt.Sprintf("encoding record: %v", err)}
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []string{fmt.Sprintf("decoding record: %v", err)}
	}

	return validateAgainstSchema(sch, instance)
}

func validateAgainstSchema(sch *jsonschema.Schema, instance any) []string {
	err := sch.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
