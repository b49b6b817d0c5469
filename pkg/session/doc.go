/*
Package session orchestrates game sessions on top of the template graph engine.

The Manager loads templates and sessions from their stores, runs engine
transitions, persists the result and fires lifecycle hooks. Every
read-modify-write on a session runs under a per-session lock: an in-process
mutex (reference counted so idle sessions leave nothing behind) plus an optional
DistributedLocker when several replicas share a store.
*/
package session
