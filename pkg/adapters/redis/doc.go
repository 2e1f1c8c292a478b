// Package redis provides Redis-backed implementations of the autoshell ports:
// a history cache shared between replicas and a distributed locker.
package redis
