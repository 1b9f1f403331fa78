package models

import "encoding/json"

// UnmarshalJSON decodes a member patch. An explicit null clears an optional
// field; absent fields stay untouched.
func (p *FamilyMemberPatch) UnmarshalJSON(data []byte) error {
	type plain FamilyMemberPatch
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	nulls, err := nullFields(data)
	if err != nil {
		return err
	}
	p.ClearAge = nulls["age"]
	clearIfNull(&p.DateOfBirth, nulls["dateOfBirth"])
	clearIfNull(&p.Avatar, nulls["avatar"])
	return nil
}

// UnmarshalJSON decodes an event patch. An explicit null clears an optional
// field; title and startDate cannot be cleared.
func (p *CalendarEventPatch) UnmarshalJSON(data []byte) error {
	type plain CalendarEventPatch
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	nulls, err := nullFields(data)
	if err != nil {
		return err
	}
	clearIfNull(&p.Description, nulls["description"])
	clearIfNull(&p.EndDate, nulls["endDate"])
	clearIfNull(&p.StartTime, nulls["startTime"])
	clearIfNull(&p.EndTime, nulls["endTime"])
	clearIfNull(&p.FamilyMemberID, nulls["familyMemberId"])
	clearIfNull(&p.Category, nulls["category"])
	clearIfNull(&p.Location, nulls["location"])
	return nil
}

// nullFields returns the top-level keys of a JSON object whose value is null
func nullFields(data []byte) (map[string]bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	nulls := make(map[string]bool)
	for key, value := range raw {
		if string(value) == "null" {
			nulls[key] = true
		}
	}
	return nulls, nil
}

func clearIfNull(dst **string, isNull bool) {
	if isNull {
		empty := ""
		*dst = &empty
	}
}
