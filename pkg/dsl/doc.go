/*
Package dsl provides a fluent builder for constructing Questline templates in Go.

It is useful for tests, seeding and generated templates where writing YAML would
be clumsy.

Example usage:

	b := dsl.New(1, "Goblin ambush")

	b.Add(1).Text("Party arrives at the bridge").Go(2, 3)
	b.Add(2).Text("Goblins attack").Go(4)
	b.Add(3).Text("Party sneaks past").Go(4)
	b.Add(4).Text("Camp for the night").Terminal()

	tpl, err := b.Build()
*/
package dsl
