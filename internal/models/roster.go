package models

// DatasetType filters the roster by the split the employee belongs to.
type DatasetType string

const (
	DatasetAll   DatasetType = ""
	DatasetTrain DatasetType = "train"
	DatasetTest  DatasetType = "test"
)

// RosterQuery captures one roster page request.
type RosterQuery struct {
	Skip        int         `json:"skip"`
	Limit       int         `json:"limit"`
	DatasetType DatasetType `json:"dataset_type,omitempty"`
}

// RosterRow is a summary row from GET /employees.
type RosterRow struct {
	EmployeeID           int         `json:"employee_id"`
	Age                  int         `json:"age"`
	Genre                string      `json:"genre"`
	Departement          string      `json:"departement"`
	Poste                string      `json:"poste"`
	RevenuMensuel        float64     `json:"revenu_mensuel"`
	AnneesDansEntreprise int         `json:"annees_dans_l_entreprise"`
	AttritionActual      *int        `json:"attrition_actual"`
	DatasetType          DatasetType `json:"dataset_type"`
}

// RosterPage is the roster slice currently on display.
type RosterPage struct {
	Query     RosterQuery `json:"query"`
	Employees []RosterRow `json:"employees"`
}
