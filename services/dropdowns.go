package services

// TaxRateOptions lists the selectable IVA percentages. Any other rate goes
// through TaxRateOther.
var TaxRateOptions = []int{0, 1, 2, 4, 8, 13}

// UnitOptions lists the units of measure offered for catalog components and
// project items.
var UnitOptions = []string{
	"Unidad",
	"Metro",
	"Metro lineal",
	"Metro cuadrado",
	"Kg",
	"Galon",
	"Litro",
	"Juego",
	"Global",
	"Hora",
	"Dia",
}

// DuctTypes, DiffuserTypes, GrilleTypes, PipeTypes and LaborTypes feed the
// per-category pickers of the quotation worksheet.
var (
	DuctTypes     = []string{"Fibra Vidrio", "Lamina Galvanizada", "Flexible"}
	DiffuserTypes = []string{"JS-OB", "AVP-OB", "LD SIN DAMPER", "ASD SIN DAMPER", "Otros"}
	GrilleTypes   = []string{"VH-OB (suministro)", "RA (retorno)", "LD SIN DAMPER (retorno)", "ASD SIN DAMPER (retorno)", "Otros"}
	PipeTypes     = []string{"Refrigeracion (evap-cond)", "Agua (Surfasyl)", "Drenaje (3/4)"}
	LaborTypes    = []string{"Técnicos", "Contratistas"}
)

// ServiceTypes lists the kinds of work a quotation can cover.
var ServiceTypes = []string{"Mantenimiento", "Instalacion", "Reparacion", "Otro"}

// ProjectStatuses lists the allowed project states in workflow order.
var ProjectStatuses = []string{
	ProjectStatusPlanning,
	ProjectStatusInProgress,
	ProjectStatusPaused,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// Project statuses as stored.
const (
	ProjectStatusPlanning   = "planning"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusPaused     = "paused"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

func validProjectStatus(s string) bool {
	for _, v := range ProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}
