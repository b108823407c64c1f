package ir

import (
	"encoding/json"
	"fmt"
)

// MarshalCommand encodes a command's fields as canonical JSON.
// The kind is not part of the payload; the journal stores it alongside.
func MarshalCommand(c Command) ([]byte, error) {
	var obj map[string]any
	switch cmd := c.(type) {
	case AddRecipe:
		ingredients := make([]any, len(cmd.Ingredients))
		for i, ing := range cmd.Ingredients {
			ingredients[i] = map[string]any{"name": ing.Name, "quantity": ing.Quantity}
		}
		obj = map[string]any{"name": cmd.Name, "ingredients": ingredients}
	case RemoveRecipe:
		obj = map[string]any{"name": cmd.Name}
	case Resupply:
		lots := make([]any, len(cmd.Lots))
		for i, lot := range cmd.Lots {
			lots[i] = map[string]any{
				"ingredient": lot.Ingredient,
				"quantity":   lot.Quantity,
				"expiration": lot.Expiration,
			}
		}
		obj = map[string]any{"lots": lots}
	case PlaceOrder:
		obj = map[string]any{"recipe": cmd.Recipe, "quantity": cmd.Quantity}
	case Unknown:
		obj = map[string]any{"token": cmd.Token}
	default:
		return nil, fmt.Errorf("marshal command: unsupported type %T", c)
	}
	return MarshalCanonical(obj)
}

// UnmarshalCommand decodes a payload written by MarshalCommand.
func UnmarshalCommand(kind Kind, data []byte) (Command, error) {
	var (
		c   Command
		err error
	)
	switch kind {
	case KindAddRecipe:
		var cmd AddRecipe
		err = json.Unmarshal(data, &cmd)
		c = cmd
	case KindRemoveRecipe:
		var cmd RemoveRecipe
		err = json.Unmarshal(data, &cmd)
		c = cmd
	case KindResupply:
		var cmd Resupply
		err = json.Unmarshal(data, &cmd)
		c = cmd
	case KindOrder:
		var cmd PlaceOrder
		err = json.Unmarshal(data, &cmd)
		c = cmd
	case KindUnknown:
		var cmd Unknown
		err = json.Unmarshal(data, &cmd)
		c = cmd
	default:
		return nil, fmt.Errorf("unmarshal command: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return c, nil
}

// MarshalDispatch encodes a dispatch report as canonical JSON.
func MarshalDispatch(d *Dispatch) ([]byte, error) {
	shipments := make([]any, len(d.Shipments))
	for i, s := range d.Shipments {
		shipments[i] = map[string]any{
			"tick":     s.Tick,
			"recipe":   s.Recipe,
			"quantity": s.Quantity,
			"weight":   s.Weight,
		}
	}
	return MarshalCanonical(map[string]any{
		"tick":      d.Tick,
		"load":      d.Load,
		"shipments": shipments,
	})
}

// UnmarshalDispatch decodes a report written by MarshalDispatch.
func UnmarshalDispatch(data []byte) (*Dispatch, error) {
	var d Dispatch
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal dispatch: %w", err)
	}
	if d.Shipments == nil {
		d.Shipments = []Shipment{}
	}
	return &d, nil
}
