// Package dockerstats scrapes per-container stats from the docker API on
// demand and exposes them as Prometheus metrics labeled with the Marathon
// app id and Mesos task id of each container.
package dockerstats
