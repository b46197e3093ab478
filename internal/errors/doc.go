// Package errors provides structured, actionable error messages for silo.
//
// Every error carries a stable code that maps to a registered template:
//   - a short message describing the error
//   - a longer explanation
//   - a default suggestion on how to fix it
//
// # Error Categories
//
//   - protocol: misuse of the silo update protocol (re-entrant dispatch,
//     subscribing from a modifier)
//   - dispatch: dynamic dispatch by action name failed
//   - config: configuration could not be loaded or is invalid
//   - cli: command line usage errors
//
// # Usage
//
//	err := errors.New("S001").
//	    WithDetail(`silo "stats" is running "addKill"`).
//	    WithSuggestion("Dispatch from a subscriber instead")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR S001: Action called from within a modifier
//	//
//	//   silo "stats" is running "addKill"
//	//
//	//   Hint: Dispatch from a subscriber instead
package errors
