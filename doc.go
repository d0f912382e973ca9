// Package pandda is the provisioning engine of a subscription-reselling
// back office.
//
// Customers buy a subscription for a number of screens. Each screen is an
// access point: a username and secret on an app hosted by one of the
// customer's (at most two) servers. Pandda keeps three records consistent
// without relying on database transactions:
//
//   - the customer,
//   - its subscription,
//   - its set of access points.
//
// Every assigned server must carry exactly Subscription.Screens slots, and
// a username on an exclusive app (one that forbids concurrent logins) may
// be held by only one access point across all customers.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/pandda"
//	    "github.com/xraph/pandda/store/sqlite"
//	)
//
//	s, err := sqlite.New(ctx, "pandda.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := pandda.New(s, pandda.WithLogger(logger))
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Workflows
//
// CreateCustomer and ReplaceCustomer validate the request, take advisory
// locks on the affected servers and exclusive apps, write through the
// store and then re-check the persisted allocation. Each successful write
// pushes its inverse onto an undo stack; on any failure the stack is
// unwound in reverse. If unwinding itself fails the caller receives a
// *FatalInconsistencyError and the store needs manual repair.
//
//	res, err := engine.CreateCustomer(ctx, actor, cust, sub, accessPoints)
//	switch {
//	case errors.Is(err, pandda.ErrCapacityMismatch):
//	    // nothing was kept
//	case errors.Is(err, pandda.ErrFatalInconsistency):
//	    // alert an operator
//	}
//
// Every mutating call takes an explicit Actor. Unblocking customers and
// deleting records require a master admin.
//
// # Renewals
//
// Due dates advance by whole calendar months. A day missing from the
// target month rolls to the first of the next month:
//
//	renewal.NextDueDate(2024-01-31, 1) // 2024-03-01
//
// # TypeID
//
// All records use TypeID identifiers:
//
//	cust_01h2xcejqtf2nbrexx3vqjhp41 // Customer ID
//	sub_01h2xcejqtf2nbrexx3vqjhp41  // Subscription ID
//	ap_01h455vb4pex5vsknk084sn02q   // Access point ID
package pandda
