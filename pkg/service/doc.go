// Package service registers singleton service objects by key and resolves
// them strictly.
//
// Services are built first and registered second:
//
//	services := service.NewRegistry()
//	todos := NewTodoService(api)
//	service.Register(services, "todos", todos)
//
//	svc, err := service.Resolve[*TodoService](services, "todos")
//	if errors.Is(err, service.ErrNotFound) { ... }
//
// The registry's own Get never fails; Resolve is the lookup consumers are
// expected to use.
package service
