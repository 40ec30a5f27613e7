package store

import "time"

type ListFilter struct {
	MachineID     *string
	Variable      *string
	OnlyAnomalous *bool
	From          *time.Time
	To            *time.Time
	BatchID       *string
}

func (filter ListFilter) SetMachineID(v string) ListFilter {
	filter.MachineID = &v
	return filter
}

func (filter ListFilter) SetVariable(v string) ListFilter {
	filter.Variable = &v
	return filter
}

func (filter ListFilter) SetOnlyAnomalous(v bool) ListFilter {
	filter.OnlyAnomalous = &v
	return filter
}

func (filter ListFilter) SetFrom(v time.Time) ListFilter {
	filter.From = &v
	return filter
}

func (filter ListFilter) SetTo(v time.Time) ListFilter {
	filter.To = &v
	return filter
}

func (filter ListFilter) SetBatchID(v string) ListFilter {
	filter.BatchID = &v
	return filter
}
