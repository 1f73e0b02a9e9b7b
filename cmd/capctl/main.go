// SPDX-License-Identifier: MPL-2.0

// capctl provisions a host from declarative capability directories:
// packages, templated config trees, setup scripts, and systemd services.
package main

func main() {
	Execute()
}
