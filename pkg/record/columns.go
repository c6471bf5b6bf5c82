package record

// Columns is the fixed, ordered output schema of a health record. One row is
// stored per data_date; every column always holds a value (real or sentinel).
//
// NOTE: this order is the storage column order and the CLI/export order; it
// is part of the stable contract.
var Columns = []string{
	"data_date", "state_name", "focus_area", "year", "month",
	"number_of_abdm_cards_linked", "number_of_abdm_cards_shared", "number_of_abdm_cards_created",
	"number_of_abdm_health_facility_registry", "abdm_healthcare_professionals_registry",
	"number_of_doctors", "number_of_nurses", "number_of_data_entry_operators",
	"number_of_pharmacists", "number_of_lab_attendents", "number_of_community_health_officers",
	"number_of_auxiliary_nurse_midwives", "facilitator_count", "asha_count",
	"number_of_total_patients_visit", "number_of_patient_opd_patient_visit",
	"number_of_male_patient_visit", "number_of_female_patient_visit", "number_of_transgender_patient_visit",
	"unique_patients_total", "number_of_ipd_patient_admission", "number_of_ipd_patient_discharge",
	"number_of_ipd_patient_surgery", "number_of_ipd_patient_transfer",
	"medico_legal_cases_count", "accident_emergency_opd_count", "accident_emergency_observation_count",
	"total_district", "total_blocks", "total_villages", "total_panchayats", "total_hsc",
	"live_hsc", "live_facilities", "asha_beneficiary_count", "asha_eligible_couple_count",
	"asha_household_count", "asha_pregnant_women_count", "delivery_count", "total_child_care_count",
	"eaushadhi_facility_count", "patient_journey_time_min", "patient_waiting_time_min",
	"hsc_patient_registered_total", "hsc_patient_till_now_total", "state_dashboard_patient_count",
	"start_date", "end_date", "source", "citizen_portal_live_facility_count",
	"number_of_wards", "number_of_beds", "fetched_at",
}

// HasColumn reports whether name is part of the output schema.
func HasColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}
