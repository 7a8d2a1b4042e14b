// Package registry provides the string-keyed registry shared by stores and
// services.
//
// A Registry maps keys to values with an overwrite-on-duplicate policy:
// adding a key that is already present replaces the value and writes one
// warning to the registry's logger. Lookups never fail; a missing key is
// reported through the boolean result of Get.
//
// Registries are ordinary values. Create one per kind and pass it to whatever
// needs it:
//
//	stores := registry.New[store.Entry]("store", registry.WithLogger(logger))
//	stores.Add("cart", cartStore)
//	entry, ok := stores.Get("cart")
//
// Reset clears every entry. References already handed out stay valid; only
// later lookups are affected.
package registry
