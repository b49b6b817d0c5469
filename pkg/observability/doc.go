/*
Package observability provides lifecycle hook helpers for the session manager.

Hooks from several consumers (structured logging, metrics, event streams) are
combined into one domain.LifecycleHooks value with Combine.
*/
package observability
