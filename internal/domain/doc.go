// Package domain contains the core entities of the todos service: todo items,
// the users they are assigned to, and the validation rules that apply to them
// independently of storage or transport.
package domain
