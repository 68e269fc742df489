// Package suite runs the check catalog against one kernel and builds
// its conformance report. Grounded on original_source/harness.rs's
// run_conformance_suite: launch, require kernel_info, iterate checks
// in catalog order skipping unrequested tiers, shut down last.
package suite

import (
	"context"
	"time"

	"kernelconform/internal/checks"
	"kernelconform/internal/driver"
	"kernelconform/internal/kernelspec"
	"kernelconform/internal/report"
)

// Run launches spec's kernel, drives every check in catalog whose tier
// is in tiers, and returns the resulting KernelReport. The shutdown
// check always runs last, even if Tier1Basic was not requested, since
// it asks the kernel to exit. Once the checks are done the driver is
// shut down (process killed if still alive, channels closed, connection
// file removed). perCheckDeadline is passed straight through to the
// driver; zero selects its default.
func Run(ctx context.Context, spec kernelspec.KernelSpec, tiers []report.TestCategory, perCheckDeadline time.Duration, catalog []checks.Check) *report.KernelReport {
	runStart := time.Now()

	k, err := driver.Launch(ctx, spec, perCheckDeadline)
	if err != nil {
		return report.NewStartupFailure(spec.Name, spec.Language, err.Error(), time.Since(runStart))
	}
	defer func() { _ = k.Shutdown(ctx) }()

	info := k.KernelInfo()
	if info == nil {
		return report.NewStartupFailure(spec.Name, spec.Language, "kernel never answered kernel_info_request", time.Since(runStart))
	}

	ordered := orderChecks(catalog, tiers)

	records := make([]report.TestRecord, 0, len(ordered))
	for _, check := range ordered {
		start := time.Now()
		result := check.Run(ctx, k)
		records = append(records, report.TestRecord{
			Name:        check.Name,
			Category:    check.Category,
			Description: check.Description,
			MessageType: check.MessageType,
			Result:      result,
			Duration:    report.Duration(time.Since(start)),
		})
	}

	return &report.KernelReport{
		KernelName:      spec.Name,
		Language:        info.LanguageInfo.Name,
		Implementation:  info.Implementation,
		ProtocolVersion: info.ProtocolVersion,
		Results:         records,
		Timestamp:       time.Now(),
		TotalDuration:   report.Duration(time.Since(runStart)),
	}
}

// orderChecks selects catalog entries whose tier was requested,
// preserving catalog order, then appends the shutdown check last
// unconditionally (adding it if its tier was not requested).
func orderChecks(catalog []checks.Check, tiers []report.TestCategory) []checks.Check {
	wanted := make(map[report.TestCategory]bool, len(tiers))
	for _, t := range tiers {
		wanted[t] = true
	}

	ordered := make([]checks.Check, 0, len(catalog))
	var shutdown *checks.Check
	for i, c := range catalog {
		if c.Name == checks.ShutdownCheckName {
			shutdown = &catalog[i]
			continue
		}
		if wanted[c.Category] {
			ordered = append(ordered, c)
		}
	}
	if shutdown != nil {
		ordered = append(ordered, *shutdown)
	}
	return ordered
}
