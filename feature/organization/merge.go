package organization

import (
	"community-hub/core/mergekit"
	membermodels "community-hub/feature/member/models"
	"community-hub/feature/organization/models"
)

// mergePolicies is the organization field conflict strategy: text
// fields are filled only when the original left them empty, contact
// lists are unioned.
func mergePolicies() map[string]mergekit.Policy {
	keepOldIfSet := func(oldValue, newValue any) any {
		if s, ok := oldValue.(string); ok && s != "" {
			return oldValue
		}
		return newValue
	}
	unionLists := func(oldValue, newValue any) any {
		union := append(membermodels.StringList{}, toStringList(oldValue)...)
		for _, item := range toStringList(newValue) {
			if !union.Contains(item) {
				union = append(union, item)
			}
		}
		return union
	}
	return map[string]mergekit.Policy{
		"displayName": func(oldValue, _ any) any {
			return oldValue
		},
		"description":  keepOldIfSet,
		"logo":         keepOldIfSet,
		"website":      keepOldIfSet,
		"emails":       unionLists,
		"phoneNumbers": unionLists,
	}
}

func orgFieldMap(o *models.Organization) map[string]any {
	return map[string]any{
		"displayName":  o.DisplayName,
		"description":  o.Description,
		"logo":         o.Logo,
		"website":      o.Website,
		"emails":       o.Emails,
		"phoneNumbers": o.PhoneNumbers,
	}
}

func orgFieldMapFromInput(input UpsertInput) map[string]any {
	out := map[string]any{}
	if input.DisplayName != "" {
		out["displayName"] = input.DisplayName
	}
	if input.Description != "" {
		out["description"] = input.Description
	}
	if input.Logo != "" {
		out["logo"] = input.Logo
	}
	if input.Website != "" {
		out["website"] = input.Website
	}
	if input.Emails != nil {
		out["emails"] = input.Emails
	}
	if input.PhoneNumbers != nil {
		out["phoneNumbers"] = input.PhoneNumbers
	}
	return out
}

func orgColumnUpdates(updates map[string]any) map[string]any {
	columns := map[string]any{}
	for field, value := range updates {
		switch field {
		case "displayName":
			columns["display_name"] = value
		case "description":
			columns["description"] = value
		case "logo":
			columns["logo"] = value
		case "website":
			columns["website"] = value
		case "emails":
			columns["emails"] = toStringList(value)
		case "phoneNumbers":
			columns["phone_numbers"] = toStringList(value)
		}
	}
	return columns
}

func toStringList(value any) membermodels.StringList {
	switch list := value.(type) {
	case membermodels.StringList:
		return list
	case []string:
		return membermodels.StringList(list)
	case []any:
		out := make(membermodels.StringList, 0, len(list))
		for _, element := range list {
			if s, ok := element.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
