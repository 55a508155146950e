// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "os"

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	// Errors have already been logged to stderr by the time we get here;
	// stdout stays clean for the GTP controller.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
