// Package atomicfile replaces files so readers see either the old or the new content.
package atomicfile
