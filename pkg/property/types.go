// Package property defines the records exchanged with the valuation backend:
// EPC candidates, area attributes, user-entered details and predictions.
// Field names follow the backend's JSON contract.
package property

// Candidate is one EPC property record returned by the candidate lookup.
// Candidates are never modified after decoding.
type Candidate struct {
	Address1                string  `json:"EPC_ADDRESS1"`
	Address2                string  `json:"EPC_ADDRESS2"`
	Address3                string  `json:"EPC_ADDRESS3"`
	Postcode                string  `json:"EPC_POSTCODE"`
	EnergyRating            string  `json:"EPC_CURRENT_ENERGY_RATING"`
	PropertyType            string  `json:"EPC_PROPERTY_TYPE"`
	BuiltForm               string  `json:"EPC_BUILT_FORM"`
	InspectionDate          int64   `json:"EPC_INSPECTION_DATE"`
	TotalFloorArea          float64 `json:"EPC_TOTAL_FLOOR_AREA"`
	HabitableRooms          float64 `json:"EPC_NUMBER_HABITABLE_ROOMS"`
	WindowsEnergyEff        string  `json:"EPC_WINDOWS_ENERGY_EFF"`
	WallsEnergyEff          string  `json:"EPC_WALLS_ENERGY_EFF"`
	RoofEnergyEff           string  `json:"EPC_ROOF_ENERGY_EFF"`
	MainHeatEnergyEff       string  `json:"EPC_MAINHEAT_ENERGY_EFF"`
	LightingEnergyEff       string  `json:"EPC_LIGHTING_ENERGY_EFF"`
	FloorHeight             float64 `json:"EPC_FLOOR_HEIGHT"`
	Address                 string  `json:"EPC_ADDRESS"`
	ConstructionAgeBand     string  `json:"EPC_CONSTRUCTION_AGE_BAND"`
	Tenure                  string  `json:"EPC_TENURE"`
	UPRN                    int64   `json:"EPC_UPRN"`
	Borough                 string  `json:"CPO_BOROUGH"`
	Ward                    string  `json:"CPO_WARD"`
	OA                      string  `json:"CPO_OA"`
	MSOA                    string  `json:"CPO_MSOA"`
	LSOA                    string  `json:"CPO_LSOA"`
	Latitude                float64 `json:"UPRN_LATITUDE"`
	Longitude               float64 `json:"UPRN_LONGITUDE"`
	EnergyConsumptionPerSqm float64 `json:"EPC_ENERGY_CONSUMPTION_CURRENT_PER_SQM"`
	CO2EmissionsPerSqm      float64 `json:"EPC_CO2_EMISSIONS_CURRENT_PER_SQM"`
	FirstInspectionDate     int64   `json:"EPC_FIRST_INSPECTION_DATE"`
}

// AreaAttributes holds transport, school, green space and deprivation
// statistics for one coordinate pair.
type AreaAttributes struct {
	NearbyBusStops       float64 `json:"NPT_NearbyBusStops"`
	NearbyTramMetroStops float64 `json:"NPT_NearbyTramMetroStops"`
	NearbyRailStops      float64 `json:"NPT_NearbyRailStops"`
	NearbyStops          float64 `json:"NPT_NearbyStops"`

	SchoolsAcademy     float64 `json:"SCH_ACAD"`
	SchoolsIndependent float64 `json:"SCH_IND"`
	SchoolsNursery     float64 `json:"SCH_NURSERY"`
	SchoolsPrimary     float64 `json:"SCH_PRIMARY"`
	SchoolsSecondary   float64 `json:"SCH_SECONDARY"`
	SchoolsOutstanding float64 `json:"SCH_OUTSTANDING"`
	SchoolsGood        float64 `json:"SCH_GOOD"`
	SchoolsInadequate  float64 `json:"SCH_INADEQUATE"`
	SchoolsAll         float64 `json:"SCH_ALL"`

	GreenMSOAName          string  `json:"PGN_MSOAName"`
	HouseWithPOS           float64 `json:"PGN_HouseWithPOS"`
	HouseTotalPOS          float64 `json:"PGN_HouseTotalPOS"`
	HouseWithPOSPct        float64 `json:"PGN_HouseWithPOSPct"`
	HouseAvgPOS            float64 `json:"PGN_HouseAvgPOS"`
	HouseMedPOS            float64 `json:"PGN_HouseMedPOS"`
	FlatWithPOS            float64 `json:"PGN_FlatWithPOS"`
	FlatTotalPOS           float64 `json:"PGN_FlatTotalPOS"`
	FlatPOSCount           float64 `json:"PGN_FlatPOSCount"`
	FlatWithPOSPct         float64 `json:"PGN_FlatWithPOSPct"`
	FlatAvgPOS             float64 `json:"PGN_FlatAvgPOS"`
	FlatPOSShare           float64 `json:"PGN_FlatPOSShare"`
	GreenLSOAName          string  `json:"PGN_LSOAName"`
	NearestParkDistanceAvg float64 `json:"PGN_NearestParkDistanceAvg"`
	NearestParkSizeAvg     float64 `json:"PGN_NearestParkSizeAvg"`
	ParkCount1kAvg         float64 `json:"PGN_1kParkCountAvg"`
	ParkSize1kAvg          float64 `json:"PGN_1kParkSizeAvg"`

	IMDLSOAName           string  `json:"IMD_LSOAName"`
	IMDDecile             float64 `json:"IMD_IMDDecile"`
	IncomeDecile          float64 `json:"IMD_IncDecile"`
	EmploymentDecile      float64 `json:"IMD_EmpDecile"`
	EducationDecile       float64 `json:"IMD_EduDecile"`
	CrimeDecile           float64 `json:"IMD_CrmDecile"`
	HousingBarriersDecile float64 `json:"IMD_HouseBarDecile"`
	EnvironmentDecile     float64 `json:"IMD_EnvDecile"`
}

// SelectedItem is a candidate merged with the area attributes of its
// coordinates. Both halves are embedded so that the JSON form is flat.
type SelectedItem struct {
	Candidate
	AreaAttributes
}

// Merge combines a candidate with its area attributes.
func Merge(c Candidate, a AreaAttributes) *SelectedItem {
	return &SelectedItem{Candidate: c, AreaAttributes: a}
}

// ProvidedAttributes is the partial set of details entered by the user.
// A nil field has not been provided yet.
type ProvidedAttributes struct {
	PropertyType    *string `json:"PPD_PropertyType,omitempty"`
	Duration        *string `json:"PPD_Duration,omitempty"`
	FloorLevel      *string `json:"EPC_FLOOR_LEVEL,omitempty"`
	ConstructionAge *int    `json:"EPC_CONSTRUCTION_AGE,omitempty"`
	BedroomsMin     *int    `json:"zoo_num_bed_min,omitempty"`
	BathroomsMin    *int    `json:"zoo_num_bath_min,omitempty"`
	ReceptionsMin   *int    `json:"zoo_num_reception_min,omitempty"`
	Garage          *bool   `json:"zoo_garage,omitempty"`
	Auction         *bool   `json:"zoo_auction,omitempty"`
	SharedOwnership *bool   `json:"zoo_shared_ownership,omitempty"`
}

// Clone returns a copy of p. A nil receiver yields an empty record. The
// pointed-to values are immutable once set, so sharing them is safe.
func (p *ProvidedAttributes) Clone() *ProvidedAttributes {
	if p == nil {
		return &ProvidedAttributes{}
	}
	cp := *p
	return &cp
}

// IsEmpty reports whether no field has been provided.
func (p *ProvidedAttributes) IsEmpty() bool {
	return p == nil || *p == ProvidedAttributes{}
}

// Prediction is the price estimate returned by the model.
type Prediction struct {
	Prediction float64 `json:"prediction"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}
