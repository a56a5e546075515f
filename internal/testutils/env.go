package testutils

import "os"

// IsDockerTestEnv returns true if the test is running in a Docker environment,
// that is when DIAGRAMMER_TEST_ENV is set to "docker".
func IsDockerTestEnv() bool {
	return os.Getenv("DIAGRAMMER_TEST_ENV") == "docker"
}

// EnforcesPermissions reports whether file mode bits restrict the current
// process. They do not for root, which is the usual user in containers.
func EnforcesPermissions() bool {
	return !IsDockerTestEnv() && os.Geteuid() != 0
}
