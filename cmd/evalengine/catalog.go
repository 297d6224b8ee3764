package main

import (
	"fmt"

	"github.com/scotty-git/sidelinescott-sub003/pkg/functions"
)

// registerCatalogFunctions builds the static set of side-effect
// functions the decider can call against the mirrored customer record
// (spec §4.6). The catalog itself names no concrete functions beyond the
// worked "set_role" example (spec §8 scenario 1); the rest are
// supplemented here as a plausible customer-service function set so the
// engine has more than one function to validate and route between.
func registerCatalogFunctions(catalog *functions.Catalog) {
	catalog.Register(functions.Function{
		Name:        "set_role",
		Description: "Sets the customer's job role or title on the mirrored record.",
		Params: []functions.ParamSpec{
			{Name: "role", Type: "string", Required: true},
		},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneCustomer(before)
			after["role"] = params["role"]
			return after, nil
		},
	})

	catalog.Register(functions.Function{
		Name:        "update_email",
		Description: "Updates the customer's contact email address.",
		Params: []functions.ParamSpec{
			{Name: "email", Type: "string", Required: true},
		},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneCustomer(before)
			after["email"] = params["email"]
			return after, nil
		},
	})

	catalog.Register(functions.Function{
		Name:        "update_phone",
		Description: "Updates the customer's contact phone number.",
		Params: []functions.ParamSpec{
			{Name: "phone", Type: "string", Required: true},
		},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneCustomer(before)
			after["phone"] = params["phone"]
			return after, nil
		},
	})

	catalog.Register(functions.Function{
		Name:        "add_account_note",
		Description: "Appends a free-form note to the customer's account notes list.",
		Params: []functions.ParamSpec{
			{Name: "note", Type: "string", Required: true},
		},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneCustomer(before)
			notes, _ := after["notes"].([]any)
			after["notes"] = append(append([]any{}, notes...), params["note"])
			return after, nil
		},
	})

	catalog.Register(functions.Function{
		Name:        "schedule_callback",
		Description: "Schedules a callback for the customer at the given time.",
		Params: []functions.ParamSpec{
			{Name: "scheduled_for", Type: "string", Required: true},
			{Name: "reason", Type: "string", Required: false},
		},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneCustomer(before)
			after["callback_scheduled_for"] = params["scheduled_for"]
			if reason, ok := params["reason"]; ok {
				after["callback_reason"] = reason
			}
			return after, nil
		},
	})

	catalog.Register(functions.Function{
		Name:        "cancel_service",
		Description: "Marks the customer's service as cancelled, optionally recording a reason.",
		Params: []functions.ParamSpec{
			{Name: "reason", Type: "string", Required: false},
		},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneCustomer(before)
			after["service_status"] = "cancelled"
			if reason, ok := params["reason"]; ok {
				after["cancellation_reason"] = reason
			}
			return after, nil
		},
	})

	catalog.Register(functions.Function{
		Name:        "apply_credit",
		Description: "Applies an account credit of the given amount, in whole cents.",
		Params: []functions.ParamSpec{
			{Name: "amount_cents", Type: "number", Required: true},
		},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneCustomer(before)
			amount, ok := toFloat(params["amount_cents"])
			if !ok {
				return nil, fmt.Errorf("amount_cents must be numeric")
			}
			existing, _ := toFloat(after["credit_balance_cents"])
			after["credit_balance_cents"] = existing + amount
			return after, nil
		},
	})
}

// cloneCustomer shallow-copies before so a transform never aliases the
// snapshot the executor already took (pkg/functions/executor.go's
// Execute snapshots before calling Run, but a transform returning before
// itself — rather than a fresh map — would still defeat that snapshot
// the moment a caller mutates the returned value).
func cloneCustomer(before map[string]any) map[string]any {
	after := make(map[string]any, len(before)+1)
	for k, v := range before {
		after[k] = v
	}
	return after
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
