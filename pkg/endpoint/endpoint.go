// Package endpoint defines the static table of Bhavya data endpoints the
// fetcher queries for each date.
//
// The table is data, not dispatch: adding or removing an endpoint is an edit
// to Specs, and everything downstream (fan-out width, merge columns, progress
// reporting) follows from the table.
package endpoint

// FieldMap maps one field of an endpoint's payload to one output column.
type FieldMap struct {
	// Column is the output column this field populates.
	Column string

	// Keys are the candidate payload keys, tried in order. The first key
	// present in the payload wins. Most endpoints have a single key;
	// IPDFacilityWardBed reports under two spellings.
	Keys []string

	// SkipZero suppresses the value when it is "0" or "0.0". The CHO/ANM
	// endpoint reports zero when the midwife roster is unavailable, which
	// must not overwrite the sentinel with a fake count.
	SkipZero bool
}

// Spec describes one of the 34 remote data points.
type Spec struct {
	// Name is the stable identifier used in progress events and merge keys.
	Name string

	// Path is the URL path segment under the API base URL.
	Path string

	// Description is a short human-readable label for introspection.
	Description string

	// Fields maps payload fields to output columns. Endpoints with no
	// field mappings are still fetched and reported; their payloads carry
	// no columns in the current output schema.
	Fields []FieldMap
}

func one(column, key string) []FieldMap {
	return []FieldMap{{Column: column, Keys: []string{key}}}
}

// Specs is the ordered endpoint table. Order is part of the contract: it is
// the fan-out slot order and the order returned by the introspection API.
var Specs = []Spec{
	{
		Name: "staff_data", Path: "staff_data", Description: "Staff/HR Data",
		Fields: []FieldMap{
			{Column: "number_of_doctors", Keys: []string{"doctor"}},
			{Column: "number_of_nurses", Keys: []string{"nurse"}},
			{Column: "number_of_data_entry_operators", Keys: []string{"deo"}},
			{Column: "number_of_pharmacists", Keys: []string{"pharmacist"}},
			{Column: "number_of_lab_attendents", Keys: []string{"lab_attendent"}},
			{Column: "number_of_community_health_officers", Keys: []string{"cho_staff"}},
		},
	},
	{
		Name: "unique_patients", Path: "unique_patients", Description: "Unique Patients",
		Fields: one("unique_patients_total", "total_patient"),
	},
	{
		Name: "opd_patients", Path: "opd_patients", Description: "OPD Patients",
		Fields: one("number_of_patient_opd_patient_visit", "patient_visit"),
	},
	{
		Name: "male_female_count", Path: "malefemaleCount", Description: "Gender-wise Count",
		Fields: []FieldMap{
			// Source key spellings are the upstream API's, typos included.
			{Column: "number_of_male_patient_visit", Keys: []string{"male_patient_visist"}},
			{Column: "number_of_female_patient_visit", Keys: []string{"female_patient_visist"}},
			{Column: "number_of_transgender_patient_visit", Keys: []string{"transgender_patient_visits"}},
		},
	},
	{
		Name: "patient_journey_time", Path: "patientJourneyTime", Description: "Journey Time",
		Fields: one("patient_journey_time_min", "journey_time_min"),
	},
	{
		Name: "patient_waiting_time", Path: "patientWaitingTime", Description: "Waiting Time",
		Fields: one("patient_waiting_time_min", "waiting_time_min"),
	},
	{
		Name: "eaushadhi_facility_count", Path: "eAushadhiFacilityCount", Description: "E-Aushadhi Facilities",
		Fields: one("eaushadhi_facility_count", "count"),
	},
	{
		Name: "ipd_facility_ward_bed", Path: "IPDFacilityWardBed", Description: "IPD Ward/Bed",
		Fields: []FieldMap{
			{Column: "number_of_wards", Keys: []string{"ward_count", "wards"}},
			{Column: "number_of_beds", Keys: []string{"bed_count", "beds"}},
		},
	},
	{
		Name: "ipd_patient_admit", Path: "IPDPatientAdmit", Description: "IPD Admissions",
		Fields: []FieldMap{
			{Column: "number_of_ipd_patient_admission", Keys: []string{"admission"}},
			{Column: "number_of_ipd_patient_discharge", Keys: []string{"discharge"}},
			{Column: "number_of_ipd_patient_surgery", Keys: []string{"surgery"}},
			{Column: "number_of_ipd_patient_transfer", Keys: []string{"transfer"}},
		},
	},
	{
		Name: "mlc_count", Path: "MLCCount", Description: "MLC Cases",
		Fields: one("medico_legal_cases_count", "count"),
	},
	{
		Name: "ae_opd_consultation", Path: "getAEOPDConsultation", Description: "A&E OPD",
		Fields: one("accident_emergency_opd_count", "count"),
	},
	{
		Name: "ae_observation_count", Path: "getAEObservationCount", Description: "A&E Observation",
		Fields: one("accident_emergency_observation_count", "count"),
	},
	{
		Name: "abdm_data", Path: "getABDMData", Description: "ABDM Data",
		Fields: []FieldMap{
			{Column: "number_of_abdm_cards_linked", Keys: []string{"Linked"}},
			{Column: "number_of_abdm_cards_shared", Keys: []string{"Shared"}},
			{Column: "number_of_abdm_cards_created", Keys: []string{"Created"}},
			{Column: "number_of_abdm_health_facility_registry", Keys: []string{"HFR"}},
			{Column: "abdm_healthcare_professionals_registry", Keys: []string{"HPR"}},
		},
	},
	{
		Name: "total_district", Path: "getTotalDistrict", Description: "Total Districts",
		Fields: one("total_district", "count"),
	},
	{
		Name: "total_live_district", Path: "getTotalLiveDistrict", Description: "Live Districts",
	},
	{
		Name: "total_block", Path: "getTotalBlock", Description: "Total Blocks",
		Fields: one("total_blocks", "count"),
	},
	{
		Name: "total_live_block", Path: "getTotalLiveBlock", Description: "Live Blocks",
	},
	{
		Name: "hsc_count", Path: "getHSCcount", Description: "HSC Count",
		Fields: []FieldMap{
			{Column: "live_hsc", Keys: []string{"live_hsc"}},
			{Column: "total_hsc", Keys: []string{"total_hsc"}},
		},
	},
	{
		Name: "hsc_patient_registered", Path: "getHSCPatientRegistered", Description: "HSC Patients Registered",
		Fields: one("hsc_patient_registered_total", "total_patient"),
	},
	{
		Name: "cho_anm_count", Path: "getCHO_ANMCount", Description: "CHO/ANM Count",
		Fields: []FieldMap{
			{Column: "number_of_auxiliary_nurse_midwives", Keys: []string{"anm"}, SkipZero: true},
		},
	},
	{
		Name: "hsc_patient_till_now", Path: "getHSCPatientTillNow", Description: "HSC Patients Till Now",
		Fields: one("hsc_patient_till_now_total", "total_patient"),
	},
	{
		Name: "patient_visits_count_hsc", Path: "getPatientVisitsCountHSC", Description: "HSC Patient Visits",
		Fields: one("number_of_total_patients_visit", "pateint_visits"),
	},
	{
		Name: "state_dashboard_patient_count", Path: "getStateDashboardPatientCount", Description: "State Dashboard",
		Fields: one("state_dashboard_patient_count", "patient_count"),
	},
	{
		Name: "citizen_portal_facility_count", Path: "getCitizenPortalDistrictFacilityCount", Description: "Citizen Portal",
		Fields: []FieldMap{
			{Column: "citizen_portal_live_facility_count", Keys: []string{"Total_Live_Facilities"}},
			{Column: "live_facilities", Keys: []string{"Total_Live_Facilities"}},
		},
	},
	{
		Name: "patient_first_registration_opd", Path: "getPatientFirstRegistrationOPD", Description: "First Registration OPD",
	},
	{
		Name: "facilitator_asha_count", Path: "get_facilitator_and_asha_count", Description: "Facilitator/ASHA",
		Fields: []FieldMap{
			{Column: "facilitator_count", Keys: []string{"facilitator_count"}},
			{Column: "asha_count", Keys: []string{"asha_count"}},
		},
	},
	{
		Name: "bcm_dcm_count", Path: "get_bcm_and_dcm_count", Description: "BCM/DCM Count",
	},
	{
		Name: "dist_block_village_panch_hsc", Path: "get_dist_block_village_panch_hsc_count", Description: "Geographic Data",
		Fields: []FieldMap{
			{Column: "total_villages", Keys: []string{"village_counts"}},
			{Column: "total_panchayats", Keys: []string{"panchayat_counts"}},
		},
	},
	{
		Name: "asha_household", Path: "getAshaHousehold", Description: "ASHA Household",
		Fields: one("asha_household_count", "household_count"),
	},
	{
		Name: "asha_beneficiary", Path: "getAshaBeneficiary", Description: "ASHA Beneficiary",
		Fields: one("asha_beneficiary_count", "beneficiary_count"),
	},
	{
		Name: "asha_eligible_couple", Path: "getAshaEligibleCouple", Description: "Eligible Couples",
		Fields: one("asha_eligible_couple_count", "ec_count"),
	},
	{
		Name: "asha_pregnant_women", Path: "getAshaPregnant_Women", Description: "Pregnant Women",
		Fields: one("asha_pregnant_women_count", "pw_count"),
	},
	{
		Name: "total_child_care", Path: "getTotalchildcare", Description: "Child Care",
		Fields: one("total_child_care_count", "child_count"),
	},
	{
		Name: "delivery_count", Path: "getDeliveryCount", Description: "Delivery Count",
		Fields: one("delivery_count", "delivery_count"),
	},
}

// Count is the number of endpoints queried per date.
var Count = len(Specs)

// ByName returns the spec with the given name, or false when unknown.
func ByName(name string) (Spec, bool) {
	for _, s := range Specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
