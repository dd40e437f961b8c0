/*
policy.go - Role-based delta sign convention

PURPOSE:
  Requests from different caller roles mean different things by "amount":
  the scheduler reports consumption (the machine poured the milk), the
  dashboard issues signed corrections (an operator adds or removes stock).

THE RULE:
  scheduler : amounts are ALWAYS consumption. The literal sign submitted is
              ignored; |amount| is applied as a negative delta. A misbehaving
              scheduler client must not be able to credit stock by sending a
              negative number.
  dashboard : the signed amount is applied as given. Positive adds,
              negative subtracts.

This is a pure function, unit-testable independent of the engine.
*/
package validation

import "github.com/brewbot/validation-engine/ledger"

// SignedDelta applies the role sign convention to a literal amount.
func SignedDelta(client ClientType, amount ledger.Amount) ledger.Amount {
	if client == ClientScheduler {
		return amount.Abs().Neg()
	}
	return amount
}
