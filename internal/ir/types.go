package ir

// Kind names a command variant. The value is also the journal's kind column.
type Kind string

const (
	KindAddRecipe    Kind = "add_recipe"
	KindRemoveRecipe Kind = "remove_recipe"
	KindResupply     Kind = "resupply"
	KindOrder        Kind = "order"
	KindUnknown      Kind = "unknown"
)

// Command is one decoded input record.
//
// Command is a sealed interface: the unexported marker method keeps the set of
// variants closed so that type switches over it can be exhaustive.
type Command interface {
	Kind() Kind
	isCommand()
}

// Ingredient is a (name, per-unit quantity) pair of a recipe.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// AddRecipe registers a recipe with its bill of materials.
type AddRecipe struct {
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients"`
}

// RemoveRecipe deletes a recipe that nothing references.
type RemoveRecipe struct {
	Name string `json:"name"`
}

// LotSpec is one lot delivered by a resupply.
type LotSpec struct {
	Ingredient string `json:"ingredient"`
	Quantity   int64  `json:"quantity"`
	Expiration int64  `json:"expiration"`
}

// Resupply adds lots to the ledger and then replays the waiting list.
type Resupply struct {
	Lots []LotSpec `json:"lots"`
}

// PlaceOrder asks for Quantity units of a recipe.
type PlaceOrder struct {
	Recipe   string `json:"recipe"`
	Quantity int64  `json:"quantity"`
}

// Unknown carries the leading token of a record no variant recognised.
type Unknown struct {
	Token string `json:"token"`
}

func (AddRecipe) Kind() Kind    { return KindAddRecipe }
func (RemoveRecipe) Kind() Kind { return KindRemoveRecipe }
func (Resupply) Kind() Kind     { return KindResupply }
func (PlaceOrder) Kind() Kind   { return KindOrder }
func (Unknown) Kind() Kind      { return KindUnknown }

func (AddRecipe) isCommand()    {}
func (RemoveRecipe) isCommand() {}
func (Resupply) isCommand()     {}
func (PlaceOrder) isCommand()   {}
func (Unknown) isCommand()      {}

// Ack is the typed acknowledgement of a command. Rendering an Ack into the
// text of a dialect is the wire package's job.
type Ack string

const (
	AckAdded         Ack = "added"
	AckIgnored       Ack = "ignored"
	AckRemoved       Ack = "removed"
	AckNotPresent    Ack = "not_present"
	AckPendingOrders Ack = "pending_orders"
	AckRestocked     Ack = "restocked"
	AckAccepted      Ack = "accepted"
	AckRejected      Ack = "rejected"
	AckUnrecognized  Ack = "unrecognized"
)

// Outcome is everything one processed command produced.
type Outcome struct {
	// Tick is the logical tick the command ran at.
	Tick int64

	// Dispatch is the courier load that fired before the command, if one was due.
	Dispatch *Dispatch

	Ack Ack

	// Token is set for AckUnrecognized.
	Token string

	// Err is the recovered command error behind a non-success Ack
	// (duplicate recipe, unknown recipe, recipe in use). Nil otherwise.
	Err error
}

// Shipment is one order handed to the courier.
type Shipment struct {
	Tick     int64  `json:"tick"`
	Recipe   string `json:"recipe"`
	Quantity int64  `json:"quantity"`
	Weight   int64  `json:"weight"`
}

// Dispatch is the report of one courier run.
// Shipments are ordered by weight descending, then creation tick ascending.
type Dispatch struct {
	Tick      int64      `json:"tick"`
	Load      int64      `json:"load"`
	Shipments []Shipment `json:"shipments"`
}

// Empty reports whether nothing was loaded.
func (d *Dispatch) Empty() bool {
	return d == nil || len(d.Shipments) == 0
}
