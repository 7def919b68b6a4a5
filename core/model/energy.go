package model

// EnergySummary is a read-only snapshot of the integrated plan energy in MWh.
type EnergySummary struct {
	OriginMWh   float64 `json:"origin_mwh"`
	OverrideMWh float64 `json:"override_mwh"`
	TotalMWh    float64 `json:"total_mwh"`
	HoldMWh     float64 `json:"hold_mwh"`
	RampMWh     float64 `json:"ramp_mwh"`
}
