/*
Package questline is a template execution graph engine for running tabletop
sessions from Discord.

A game master authors a template: a graph of numbered nodes, each with a
description and a list of destination node ids. Templates may branch, merge
and loop. Players then run sessions against a template; a session records
which nodes have executed and where the party currently stands, without ever
mutating the template it was started from.

# Packages

  - pkg/domain holds the data model and typed errors.
  - pkg/engine validates templates and advances sessions. It is pure and safe for concurrent use.
  - pkg/dsl builds templates in code.
  - pkg/templates and pkg/session are the services the HTTP, MCP and CLI surfaces share.
  - pkg/adapters/* persist templates and sessions in memory, JSON files, Redis or SQLite,
    and load templates from YAML documents or Loam markdown directories.

# Usage

	b := dsl.New(1, "Goblin ambush")
	b.Add(1).Text("The party reaches the bridge").Go(2, 3)
	b.Add(2).Text("Goblins attack").Go(3)
	b.Add(3).Text("Camp for the night")
	tpl := b.MustBuild()

	eng := engine.New()
	if err := eng.Validate(tpl).Err(); err != nil {
		log.Fatal(err)
	}

	sess, _ := eng.NewSession(tpl, 1, "Friday game", "guild-42")
	sess, err := eng.Advance(tpl, sess, 2)

The questline command serves the same operations over HTTP and MCP.
*/
package questline
