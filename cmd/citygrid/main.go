/*
Copyright © 2024 the citygrid authors.
This file is part of citygrid.

citygrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

citygrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with citygrid.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command citygrid is a command-line interface for preparing gridded
// city emissions datasets.
package main

import (
	"fmt"
	"os"

	"github.com/chuanlongZhou/indian-100-data/gridutil"
)

func main() {
	if err := gridutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
