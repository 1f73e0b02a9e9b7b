// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
)

// ChownByName resolves a "user:group" string against the host's user and
// group databases and applies it to path. Numeric IDs are accepted in either
// position.
func ChownByName(path, owner string) error {
	userName, groupName, found := strings.Cut(owner, ":")
	if !found || userName == "" || groupName == "" {
		return fmt.Errorf("owner %q is not of the form user:group", owner)
	}

	uid, err := resolveUID(userName)
	if err != nil {
		return err
	}
	gid, err := resolveGID(groupName)
	if err != nil {
		return err
	}

	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chown %s to %s: %w", path, owner, err)
	}
	return nil
}

func resolveUID(name string) (int, error) {
	if id, err := strconv.Atoi(name); err == nil {
		return id, nil
	}
	u, err := user.Lookup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup user %q: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, fmt.Errorf("non-numeric uid %q for user %q", u.Uid, name)
	}
	return uid, nil
}

func resolveGID(name string) (int, error) {
	if id, err := strconv.Atoi(name); err == nil {
		return id, nil
	}
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup group %q: %w", name, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("non-numeric gid %q for group %q", g.Gid, name)
	}
	return gid, nil
}
