package contracts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"listing-ingest-service/internal/core/domain"
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ListingBatchV1 - ключ схемы входящего JSON-пакета
const ListingBatchV1 = "ListingBatch/1.0.0"

// ErrContractViolation - тело запроса не соответствует схеме
var ErrContractViolation = errors.New("request does not match the contract")

//go:embed schemas
var schemasFS embed.FS

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	var paths []string
	err := fs.WalkDir(schemasFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		file, err := schemasFS.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := compiler.AddResource(path, file); err != nil {
			return fmt.Errorf("failed to add schema resource %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		log.Fatalf("error loading schemas: %v", err)
	}

	for _, path := range paths {
		schema, err := compiler.Compile(path)
		if err != nil {
			log.Fatalf("could not compile schema %s: %v", path, err)
		}
		compiledSchemas[keyFromPath(path)] = schema
	}
}

// keyFromPath: "schemas/listing-batch/v1.json" -> "ListingBatch/1.0.0"
func keyFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "schemas/"), ".json")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return trimmed
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[0], "-") {
		name.WriteString(caser.String(p))
	}
	return fmt.Sprintf("%s/%s.0.0", name.String(), strings.TrimPrefix(parts[1], "v"))
}

// ValidateListingBatch проверяет уже разобранный JSON (decoder с UseNumber).
// Превышение maxItems возвращается как domain.ErrBatchTooLarge.
func ValidateListingBatch(doc any) error {
	schema, ok := compiledSchemas[ListingBatchV1]
	if !ok {
		return fmt.Errorf("schema %s is not registered", ListingBatchV1)
	}

	err := schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	if hasKeyword(verr, "maxItems") {
		return fmt.Errorf("%w: %s", domain.ErrBatchTooLarge, leafMessage(verr))
	}
	return fmt.Errorf("%w: %s", ErrContractViolation, leafMessage(verr))
}

func hasKeyword(verr *jsonschema.ValidationError, keyword string) bool {
	if strings.HasSuffix(verr.KeywordLocation, "/"+keyword) {
		return true
	}
	for _, cause := range verr.Causes {
		if hasKeyword(cause, keyword) {
			return true
		}
	}
	return false
}

// leafMessage берет самую глубокую причину: она указывает на конкретную запись
func leafMessage(verr *jsonschema.ValidationError) string {
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	location := verr.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("at %s: %s", location, verr.Message)
}
