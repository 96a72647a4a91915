// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import "net/http"

// handleToolCatalog lists every registered synthetic tool together with
// its argument schema and the policies bound to it, so a client can
// discover what the agent may do before sending a query.
func (s *Server) handleToolCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Tools.Catalog(s.Policies))
}
