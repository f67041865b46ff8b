package convo

import "strings"

// FieldSpec describes one collectable ticket field.
type FieldSpec struct {
	Name        string
	Description string
	Example     string
}

// Fields the operator must provide beyond what the catalog auto-fills.
var requiredFields = []FieldSpec{
	{Name: "plant", Description: "Planta donde ocurrió el incidente", Example: "Planta Norte"},
	{Name: "line", Description: "Línea de producción", Example: "Línea 1"},
	{Name: "work_cell", Description: "Celda de trabajo o estación", Example: "Estación de empaque"},
	{Name: "shift", Description: "Turno actual", Example: "Mañana / Tarde / Noche"},
	{Name: "description", Description: "Descripción detallada de lo que sucedió", Example: "Se atascó producto en la curva de la banda 3"},
}

var optionalFields = []FieldSpec{
	{Name: "machine", Description: "Máquina involucrada (si aplica)", Example: "Clasificadora MOBA"},
	{Name: "lot_number", Description: "Número de lote (si aplica)", Example: "LOT-20260224-001"},
	{Name: "production_order", Description: "Orden de producción (si aplica)", Example: "OP-2026-0451"},
}

// Natural-language aliases the operator may use when asking to edit a field.
var fieldAliases = map[string]string{
	"planta":      "plant",
	"plant":       "plant",
	"línea":       "line",
	"linea":       "line",
	"line":        "line",
	"celda":       "work_cell",
	"estación":    "work_cell",
	"estacion":    "work_cell",
	"work_cell":   "work_cell",
	"turno":       "shift",
	"shift":       "shift",
	"descripción": "description",
	"descripcion": "description",
	"máquina":     "machine",
	"maquina":     "machine",
	"lote":        "lot_number",
	"lot":         "lot_number",
	"orden":       "production_order",
}

// CanonicalField maps an operator-supplied field name or alias to its
// canonical name.
func CanonicalField(input string) (string, bool) {
	name, ok := fieldAliases[strings.ToLower(strings.TrimSpace(input))]
	return name, ok
}

// EditableFieldNames lists the aliases offered in the edit prompt.
func EditableFieldNames() string {
	return "planta, línea, celda, turno, descripción, máquina, lote, orden"
}

func lookupFieldSpec(name string) FieldSpec {
	for _, f := range requiredFields {
		if f.Name == name {
			return f
		}
	}
	for _, f := range optionalFields {
		if f.Name == name {
			return f
		}
	}
	return FieldSpec{Name: name, Description: name}
}

// missingRequired returns the given required field names that have no
// non-empty value in the draft, preserving order.
func missingRequired(required []string, draft map[string]string) []string {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(draft[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// DefaultRequiredFields is used when a catalog entry does not declare its
// own required-field list.
func DefaultRequiredFields() []string {
	names := make([]string, len(requiredFields))
	for i, f := range requiredFields {
		names[i] = f.Name
	}
	return names
}
