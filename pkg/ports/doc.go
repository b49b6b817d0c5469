/*
Package ports defines the driven ports (interfaces) around the Questline engine.

These interfaces decouple the session and template services from concrete storage
backends, template sources and lock providers.

# Key Interfaces

  - TemplateStore: persists authored templates.
  - SessionStore: persists game sessions and their execution overlays.
  - TemplateLoader: reads template definitions from files or repositories.
  - DistributedLocker: serializes writes to one session across replicas.
  - GraphEngine: the template graph engine as seen by adapters.
*/
package ports
