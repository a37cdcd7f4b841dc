// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
bio-hicslice provides utilities for HICSLICE contact files.

  bio-hicslice count --bedpe=regions.bedpe slicepath
      Sum the contacts of a slice file that fall in at least one BEDPE region.

  bio-hicslice coverage [--out=path] slicepath
      Dump the per-bin coverage of a slice file as a TSV table.

  bio-hicslice filter --bed=regions.bed [--gzip] inpath outpath
      Keep only the contacts whose two ends both fall in the given regions.
*/
package main

import (
	"fmt"

	"github.com/grailbio/apa/apa"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func newCmdCount() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "count",
		Short:    "Sum the contacts of a slice file that fall in the given BEDPE regions",
		ArgsName: "slicepath",
	}
	opts := countOpts{}
	cmd.Flags.StringVar(&opts.bedpePath, "bedpe", "", "BEDPE file listing the 2D regions to count (required)")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("count takes one pathname argument, but got %v", argv)
		}
		return count(vcontext.Background(), argv[0], env.Stdout, opts)
	})
	return cmd
}

func newCmdCoverage() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "coverage",
		Short:    "Dump the per-bin coverage of a slice file",
		ArgsName: "slicepath",
	}
	opts := coverageOpts{}
	cmd.Flags.StringVar(&opts.outPath, "out", "", "Output TSV path, bgzipped if it ends in .gz. By default the table is written to stdout")
	cmd.Flags.StringVar(&opts.mode, "mode", "all", "Contacts counted; 'all', 'intra' or 'inter'")
	cmd.Flags.Int64Var(&opts.progressInterval, "progress-interval", apa.DefaultOpts.ProgressInterval, "Number of records between progress log lines; 0 disables them")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("coverage takes one pathname argument, but got %v", argv)
		}
		return coverage(vcontext.Background(), argv[0], env.Stdout, opts)
	})
	return cmd
}

func newCmdFilter() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "filter",
		Short:    "Keep the contacts of a slice file whose two ends fall in the given regions",
		ArgsName: "inpath outpath",
	}
	opts := filterOpts{}
	cmd.Flags.StringVar(&opts.bedPath, "bed", "", "BED file listing the regions to keep; this and/or -region required")
	cmd.Flags.StringVar(&opts.region, "region", "", "Additional region to keep. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	cmd.Flags.BoolVar(&opts.gzip, "gzip", false, "gzip-compress the output")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("filter takes inpath outpath, but got %v", argv)
		}
		return filter(vcontext.Background(), argv[0], argv[1], opts)
	})
	return cmd
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-hicslice",
			Short:    "Tools for working with HICSLICE contact files",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCount(),
				newCmdCoverage(),
				newCmdFilter(),
			},
		})
}
