/*
Package domain contains the core domain models of Questline.

It defines the template graph and the per-session execution overlay. This package
is kept pure and free of I/O or persistence concerns.

# Key Entities

  - Template: a reusable graph of TemplateNodes indexed by integer id.
  - TemplateNode: one step, with a description and ordered destination ids.
  - GameSession: a run of a template, positioned at a current node.
  - SessionNode: the per-session overlay recording when a node was executed.
  - ValidationResult: hard errors plus advisory findings (unreachable nodes, cycles).
*/
package domain
