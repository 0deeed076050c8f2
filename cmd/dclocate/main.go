// Command dclocate is a thin CLI wrapper around pkg/dclocator: it
// resolves a domain controller for a domain the way the Windows
// DsGetDcName family of APIs would and prints the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dclocator"
	"github.com/dclocate/dclocator/pkg/dnslocator"
	"github.com/dclocate/dclocator/pkg/flags"
)

func main() {
	logger := logrus.StandardLogger()
	logger.SetLevel(logrus.InfoLevel)
	ctx := dlog.WithLogger(context.Background(), dlog.WrapLogrus(logger))

	cmd := command()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: error: %v\n", cmd.CommandPath(), err)
		os.Exit(1)
	}
}

// jsonResult mirrors dclocator.DomainControllerInfo with its net.IP,
// uuid.UUID, and flags.DsFlagSet fields rendered as their String()
// forms, since none of those types round-trip usefully through
// encoding/json on their own.
type jsonResult struct {
	DomainControllerName string `json:"domainControllerName"`
	IPAddress            string `json:"ipAddress,omitempty"`
	DomainGUID           string `json:"domainGuid"`
	DomainName           string `json:"domainName"`
	DNSForestName        string `json:"dnsForestName"`
	DsFlags              string `json:"dsFlags"`
	DCSiteName           string `json:"dcSiteName"`
	ClientSiteName       string `json:"clientSiteName"`
}

func command() *cobra.Command {
	var (
		domain            string
		site              string
		gc                bool
		pdc               bool
		kdc               bool
		ds                bool
		ipRequired        bool
		nextClosestSite   bool
		ldapOnly          bool
		returnFlatName    bool
		forceRediscovery  bool
		readTimeoutMillis int
		asJSON            bool
	)

	cmd := &cobra.Command{
		Use:           "dclocate [domain]",
		Short:         "locate an Active Directory domain controller via DNS SRV discovery and an LDAP ping",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				domain = args[0]
			}

			var bits uint32
			if gc {
				bits |= uint32(flags.GCServerRequired)
			}
			if pdc {
				bits |= uint32(flags.PDCRequired)
			}
			if kdc {
				bits |= uint32(flags.KDCRequired)
			}
			if ds {
				bits |= uint32(flags.DirectoryServiceRequired)
			}
			if ipRequired {
				bits |= uint32(flags.IPRequired)
			}
			if nextClosestSite {
				bits |= uint32(flags.TryNextClosestSite)
			}
			if ldapOnly {
				bits |= uint32(flags.OnlyLDAPNeeded)
			}
			if returnFlatName {
				bits |= uint32(flags.ReturnFlatName)
			}
			if forceRediscovery {
				bits |= uint32(flags.ForceRediscovery)
			}

			req := dclocator.Request{
				DomainName:        domain,
				SiteName:          site,
				Flags:             flags.NewDcLocatorFlagSet(bits),
				ReadTimeoutMillis: readTimeoutMillis,
			}

			o := dclocator.NewOrchestratorBuilder().
				WithSRVLocator(dnslocator.NewLocatorBuilder().WithReadTimeoutMillis(readTimeoutMillis).Build()).
				WithTimeouts(-1, readTimeoutMillis).
				Build()
			info, err := o.Locate(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				var ip string
				if info.IPAddress != nil {
					ip = info.IPAddress.String()
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(jsonResult{
					DomainControllerName: info.DomainControllerName,
					IPAddress:            ip,
					DomainGUID:           info.DomainGUID.String(),
					DomainName:           info.DomainName,
					DNSForestName:        info.DNSForestName,
					DsFlags:              info.DsFlags.String(),
					DCSiteName:           info.DCSiteName,
					ClientSiteName:       info.ClientSiteName,
				})
			}

			fmt.Fprintf(out, "Domain controller:  %s\n", info.DomainControllerName)
			if info.IPAddress != nil {
				fmt.Fprintf(out, "IP address:         %s\n", info.IPAddress)
			}
			fmt.Fprintf(out, "Domain:             %s\n", info.DomainName)
			fmt.Fprintf(out, "Forest:             %s\n", info.DNSForestName)
			fmt.Fprintf(out, "DC site:            %s\n", info.DCSiteName)
			fmt.Fprintf(out, "Client site:        %s\n", info.ClientSiteName)
			fmt.Fprintf(out, "Domain GUID:        %s\n", info.DomainGUID)
			fmt.Fprintf(out, "Flags:              %s\n", info.DsFlags)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&site, "site", "s", "", "restrict discovery to this AD site")
	f.BoolVar(&gc, "gc", false, "require a Global Catalog server (DS_GC_SERVER_REQUIRED)")
	f.BoolVar(&pdc, "pdc", false, "require the PDC emulator (DS_PDC_REQUIRED)")
	f.BoolVar(&kdc, "kdc", false, "require a Kerberos KDC (DS_KDC_REQUIRED)")
	f.BoolVar(&ds, "ds", false, "require an AD/AD LDS directory service (DS_DIRECTORY_SERVICE_REQUIRED)")
	f.BoolVar(&ipRequired, "ip-required", false, "require the DC's IP address in the response (DS_IP_REQUIRED)")
	f.BoolVar(&nextClosestSite, "try-next-closest-site", false, "fall back to the next-closest site if the client's own site has no survivor (DS_TRY_NEXTCLOSEST_SITE)")
	f.BoolVar(&ldapOnly, "ldap-only", false, "only an LDAP server is needed, not a full DC (DS_ONLY_LDAP_NEEDED)")
	f.BoolVar(&returnFlatName, "return-flat-name", false, "return NetBIOS names instead of DNS names (DS_RETURN_FLAT_NAME)")
	f.BoolVar(&forceRediscovery, "force-rediscovery", false, "bypass any cached result (DS_FORCE_REDISCOVERY)")
	f.IntVar(&readTimeoutMillis, "read-timeout-ms", -1, "read timeout in milliseconds for each SRV lookup and LDAP ping; negative means system default")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}
