// Package hallofbeorn is a small client for the Hall of Beorn card export API.
//
// Cards fetches every card of one set by name and Sets lists the published
// sets in the order the site presents them. Raw response bodies can be kept
// in a Cache so repeated runs avoid the network.
package hallofbeorn
