package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// UpsertModel inserts model and, on a conflict over conflictColumns, rewrites
// every other db column of model except those listed in keep.
func UpsertModel(table string, model any, conflictColumns []string, keep ...string) (string, []any, error) {
	cols, vals, err := columnsAndValuesFromModel(model)
	if err != nil {
		return "", nil, err
	}

	skip := make(map[string]struct{}, len(conflictColumns)+len(keep))
	for _, col := range conflictColumns {
		skip[col] = struct{}{}
	}
	for _, col := range keep {
		skip[col] = struct{}{}
	}
	update := make([]string, 0, len(cols))
	for _, col := range cols {
		if _, ok := skip[col]; !ok {
			update = append(update, col)
		}
	}

	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		OnConflictDoUpdate(conflictColumns, update...).
		ToSQL()
}

func columnsAndValuesFromModel(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct")
	}

	typ := value.Type()
	cols := make([]string, 0, typ.NumField())
	vals := make([]any, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		tag := strings.TrimSpace(field.Tag.Get("db"))
		if tag == "" || tag == "-" {
			continue
		}
		col := strings.TrimSpace(strings.Split(tag, ",")[0])
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}
