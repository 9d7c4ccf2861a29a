// Package testsupport provides shared fixtures for package tests: temp photo
// folders, deterministic image fixtures, synthetic TIFF-container RAW files,
// and pre-wired configurations.
package testsupport
